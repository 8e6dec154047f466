package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	p1 = Member{UserID: 1, Name: "P1"}
	p2 = Member{UserID: 2, Name: "P2"}
	w1 = Member{UserID: 3, Name: "W1"}
	w2 = Member{UserID: 4, Name: "W2"}
)

func fullRoster() Roster {
	return Roster{
		ActivityID:      "a1",
		MaxParticipants: 2,
		Participants:    []Member{p1, p2},
		Waitlist:        []Member{w1, w2},
	}
}

func TestApplyLeave_PromotesWaitlistHead(t *testing.T) {
	r := fullRoster()
	got := ApplyLeave(r, p1.UserID)

	assert.Equal(t, []Member{p2, w1}, got.Participants)
	assert.Equal(t, []Member{w2}, got.Waitlist)
	assert.Equal(t, fullRoster(), r, "input must not be mutated")
}

func TestApplyLeave_FromWaitlist(t *testing.T) {
	got := ApplyLeave(fullRoster(), w1.UserID)
	assert.Equal(t, []Member{p1, p2}, got.Participants)
	assert.Equal(t, []Member{w2}, got.Waitlist)
}

func TestApplyLeave_NoWaitlist(t *testing.T) {
	r := Roster{MaxParticipants: 2, Participants: []Member{p1, p2}}
	got := ApplyLeave(r, p2.UserID)
	assert.Equal(t, []Member{p1}, got.Participants)
	assert.Empty(t, got.Waitlist)
}

func TestApplyLeave_UnknownUser(t *testing.T) {
	assert.Equal(t, fullRoster(), ApplyLeave(fullRoster(), 99))
}

func TestApplyJoin(t *testing.T) {
	r := Roster{MaxParticipants: 1}
	r = ApplyJoin(r, p1)
	r = ApplyJoin(r, p2)
	r = ApplyJoin(r, p2)
	assert.Equal(t, []Member{p1}, r.Participants)
	assert.Equal(t, []Member{p2}, r.Waitlist)
}

func TestView_PredictionIsDisplayOnly(t *testing.T) {
	v := NewView(fullRoster())
	v.PredictLeave(p1.UserID)

	assert.True(t, v.HasPrediction())
	assert.Equal(t, []Member{p2, w1}, v.Display().Participants)
	assert.Equal(t, fullRoster(), v.Confirmed())

	// Join decisions still use the confirmed roster.
	assert.False(t, v.CanJoin(p1.UserID))

	confirmed := ApplyLeave(fullRoster(), p1.UserID)
	v.Confirm(confirmed)
	assert.False(t, v.HasPrediction())
	assert.True(t, v.CanJoin(p1.UserID))
}

func TestView_CancelledActivity(t *testing.T) {
	r := fullRoster()
	r.Cancelled = true
	v := NewView(r)
	assert.False(t, v.CanJoin(42))
}
