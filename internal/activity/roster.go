// Package activity models capacity-limited activities with a waitlist.
package activity

import (
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("activity not found")
	ErrCancelled     = errors.New("activity is cancelled")
	ErrAlreadyJoined = errors.New("user already joined this activity")
	ErrNotMember     = errors.New("user is not part of this activity")
	ErrNotOrganizer  = errors.New("only the organizer can cancel an activity")
)

type Member struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OrganizerID int64     `json:"organizerId"`
	StartsAt    time.Time `json:"startsAt"`
}

type Roster struct {
	ActivityID      string   `json:"activityId"`
	MaxParticipants int      `json:"maxParticipants"`
	Participants    []Member `json:"participants"`
	Waitlist        []Member `json:"waitlist"`
	Cancelled       bool     `json:"cancelled"`
}

func (r Roster) clone() Roster {
	r.Participants = slices.Clone(r.Participants)
	r.Waitlist = slices.Clone(r.Waitlist)
	return r
}

func (r Roster) IsParticipant(userID int64) bool {
	return indexOf(r.Participants, userID) >= 0
}

func (r Roster) IsWaitlisted(userID int64) bool {
	return indexOf(r.Waitlist, userID) >= 0
}

func (r Roster) IsMember(userID int64) bool {
	return r.IsParticipant(userID) || r.IsWaitlisted(userID)
}

func (r Roster) Full() bool {
	return r.MaxParticipants > 0 && len(r.Participants) >= r.MaxParticipants
}

// ApplyJoin places the member in the participant list, or at the end of the waitlist when full.
func ApplyJoin(r Roster, m Member) Roster {
	next := r.clone()
	if next.IsMember(m.UserID) {
		return next
	}
	if next.Full() {
		next.Waitlist = append(next.Waitlist, m)
	} else {
		next.Participants = append(next.Participants, m)
	}
	return next
}

// ApplyLeave removes userID from whichever list holds it. When a participant
// slot frees up the head of the waitlist is promoted.
func ApplyLeave(r Roster, userID int64) Roster {
	next := r.clone()
	if i := indexOf(next.Participants, userID); i >= 0 {
		next.Participants = slices.Delete(next.Participants, i, i+1)
		if len(next.Participants) < next.MaxParticipants && len(next.Waitlist) > 0 {
			next.Participants = append(next.Participants, next.Waitlist[0])
			next.Waitlist = slices.Delete(next.Waitlist, 0, 1)
		}
		return next
	}
	if i := indexOf(next.Waitlist, userID); i >= 0 {
		next.Waitlist = slices.Delete(next.Waitlist, i, i+1)
	}
	return next
}

func indexOf(members []Member, userID int64) int {
	return slices.IndexFunc(members, func(m Member) bool { return m.UserID == userID })
}

// View pairs the last server-confirmed roster with an optional local prediction.
// The prediction is for display only.
type View struct {
	mu         sync.Mutex
	confirmed  Roster
	prediction *Roster
}

func NewView(confirmed Roster) *View {
	return &View{confirmed: confirmed.clone()}
}

// PredictLeave records the expected effect of a leave the server has accepted.
func (v *View) PredictLeave(userID int64) Roster {
	v.mu.Lock()
	defer v.mu.Unlock()
	base := v.confirmed
	if v.prediction != nil {
		base = *v.prediction
	}
	p := ApplyLeave(base, userID)
	v.prediction = &p
	return p.clone()
}

// Display returns the prediction when one exists, otherwise the confirmed roster.
func (v *View) Display() Roster {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.prediction != nil {
		return v.prediction.clone()
	}
	return v.confirmed.clone()
}

// Confirm installs an authoritative roster and discards any prediction.
func (v *View) Confirm(r Roster) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.confirmed = r.clone()
	v.prediction = nil
}

func (v *View) Confirmed() Roster {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.confirmed.clone()
}

func (v *View) HasPrediction() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.prediction != nil
}

// CanJoin is decided on confirmed state only.
func (v *View) CanJoin(userID int64) bool {
	c := v.Confirmed()
	return !c.Cancelled && !c.IsMember(userID)
}
