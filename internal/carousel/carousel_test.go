package carousel

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestController(t *testing.T, opts []Option) (*Controller, *fakeClock, *[]string) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	var selected []string
	c := New(func(o Option) { selected = append(selected, o.Value) }, WithClock(clock.now))
	c.SetOptions(opts)
	return c, clock, &selected
}

func abc() []Option {
	return []Option{{Value: "A"}, {Value: "B"}, {Value: "C"}}
}

func TestNext_WrapsAroundAndSelectsInOrder(t *testing.T) {
	c, clock, selected := newTestController(t, abc())

	for i := 0; i < 3; i++ {
		c.Next()
		clock.advance(DefaultLockWindow)
	}

	if diff := cmp.Diff([]string{"B", "C", "A"}, *selected); diff != "" {
		t.Errorf("selections mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, c.Index())
}

func TestPrevious_WrapsToLast(t *testing.T) {
	c, _, selected := newTestController(t, abc())
	c.Previous()
	assert.Equal(t, 2, c.Index())
	assert.Equal(t, []string{"C"}, *selected)
}

func TestNext_SentinelIsNavigableButNotSelected(t *testing.T) {
	opts := []Option{{Value: "ocean"}, {Value: "rain"}, {Value: "upload", Sentinel: true}}
	c, clock, selected := newTestController(t, opts)

	for i := 0; i < len(opts); i++ {
		c.Next()
		clock.advance(DefaultLockWindow)
		if i == 1 {
			cur, ok := c.Current()
			require.True(t, ok)
			assert.True(t, cur.Sentinel)
		}
	}

	assert.Equal(t, 0, c.Index())
	assert.Equal(t, []string{"rain", "ocean"}, *selected)
}

func TestTransitionLock_IgnoresRapidInput(t *testing.T) {
	c, clock, selected := newTestController(t, abc())

	c.Next()
	c.Next()
	c.Previous()
	assert.Equal(t, 1, c.Index())
	assert.True(t, c.Locked())

	clock.advance(DefaultLockWindow - time.Millisecond)
	c.Next()
	assert.Equal(t, 1, c.Index())

	clock.advance(time.Millisecond)
	assert.False(t, c.Locked())
	c.Next()
	assert.Equal(t, 2, c.Index())
	assert.Equal(t, []string{"B", "C"}, *selected)
}

func TestSetOptions_DoesNotStartLockAndClamps(t *testing.T) {
	c, clock, _ := newTestController(t, abc())
	c.SelectByValue("C")
	assert.False(t, c.Locked())

	c.SetOptions([]Option{{Value: "X"}})
	assert.Equal(t, 0, c.Index())
	assert.False(t, c.Locked())

	c.Next()
	assert.True(t, c.Locked())
	c.SetOptions(abc())
	clock.advance(DefaultLockWindow)
	assert.False(t, c.Locked())
}

func TestSetOptions_FollowsCurrentValue(t *testing.T) {
	c, _, selected := newTestController(t, abc())
	c.SelectByValue("B")

	c.SetOptions([]Option{{Value: "new"}, {Value: "A"}, {Value: "B"}, {Value: "C"}})
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "B", cur.Value)
	assert.Equal(t, []string{"B"}, *selected)
}

func TestSetOptions_ShrinkClampsIntoRange(t *testing.T) {
	c, _, _ := newTestController(t, []Option{{Value: "A"}, {Value: "B"}, {Value: "C"}, {Value: "D"}})
	c.SelectByValue("D")
	c.SetOptions([]Option{{Value: "X"}, {Value: "Y"}})
	assert.Equal(t, 1, c.Index())
}

func TestSyncFromExternalSelection_DoesNotNotify(t *testing.T) {
	c, _, selected := newTestController(t, abc())
	c.SyncFromExternalSelection("C")
	assert.Equal(t, 2, c.Index())
	c.SyncFromExternalSelection("missing")
	assert.Equal(t, 2, c.Index())
	assert.Empty(t, *selected)
}

func TestSelectByValue_OnlyWhenChanged(t *testing.T) {
	c, _, selected := newTestController(t, abc())
	c.SelectByValue("A")
	c.SelectByValue("B")
	c.SelectByValue("B")
	assert.Equal(t, []string{"B"}, *selected)
}

func TestEmptyOptions(t *testing.T) {
	c, _, selected := newTestController(t, nil)
	c.Next()
	c.Previous()
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, c.Index())
	assert.Empty(t, *selected)
	assert.False(t, c.Locked())
}
