package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagemaster/internal/models"
	"messagemaster/internal/notify"
)

type fakeSource struct {
	mu     sync.Mutex
	anns   []models.Announcement
	notifs []models.Notification
	err    error
	seen   []string
	read   []string
	block  chan struct{}
}

func (f *fakeSource) ListUnseenAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Announcement(nil), f.anns...), nil
}

func (f *fakeSource) ListNotifications(context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.notifs...), nil
}

func (f *fakeSource) MarkAnnouncementSeen(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, id)
	kept := f.anns[:0]
	for _, a := range f.anns {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.anns = kept
	return nil
}

func (f *fakeSource) MarkNotificationRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read = append(f.read, id)
	kept := f.notifs[:0]
	for _, n := range f.notifs {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	f.notifs = kept
	return nil
}

func (f *fakeSource) setCounts(anns, notifs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f.anns = nil
	for i := 0; i < anns; i++ {
		f.anns = append(f.anns, models.Announcement{ID: fmt.Sprintf("a%d", i), CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	f.notifs = nil
	for i := 0; i < notifs; i++ {
		f.notifs = append(f.notifs, models.Notification{ID: fmt.Sprintf("n%d", i), Link: "/campaigns", CreatedAt: base.Add(time.Duration(i)*time.Hour + 30*time.Minute)})
	}
}

type countingChime struct {
	mu    sync.Mutex
	rings []int
}

func (c *countingChime) Ring(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rings = append(c.rings, n)
}

func (c *countingChime) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rings)
}

func TestChimeOnlyOnIncrease(t *testing.T) {
	src := &fakeSource{}
	chime := &countingChime{}
	p := NewPoller(src, chime, time.Hour)
	ctx := context.Background()

	src.setCounts(2, 1)
	_, err := p.PollNow(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, chime.count(), "first non-empty poll rises from zero")

	src.setCounts(3, 2)
	snap, err := p.PollNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Unread)
	assert.Equal(t, 2, chime.count(), "3 -> 5 rings once")

	_, err = p.PollNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, chime.count(), "5 -> 5 stays silent")

	src.setCounts(2, 1)
	_, err = p.PollNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, chime.count(), "5 -> 3 stays silent")

	src.setCounts(2, 2)
	_, err = p.PollNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, chime.count(), "3 -> 4 rings again")
}

func TestMergeSortsNewestFirst(t *testing.T) {
	src := &fakeSource{}
	src.setCounts(2, 2)
	p := NewPoller(src, notify.Silent{}, time.Hour)
	snap, err := p.PollNow(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Items, 4)
	for i := 1; i < len(snap.Items); i++ {
		assert.False(t, snap.Items[i].CreatedAt.After(snap.Items[i-1].CreatedAt))
	}
	assert.Equal(t, KindNotification, snap.Items[0].Kind)
	assert.Equal(t, 2, snap.Announcements)
	assert.Equal(t, 2, snap.Notifications)
}

func TestFailedPollKeepsLastSnapshot(t *testing.T) {
	src := &fakeSource{}
	src.setCounts(1, 0)
	chime := &countingChime{}
	p := NewPoller(src, chime, time.Hour)
	_, err := p.PollNow(context.Background())
	require.NoError(t, err)

	first := p.Snapshot().PolledAt

	src.mu.Lock()
	src.err = errors.New("backend down")
	src.mu.Unlock()
	snap, err := p.PollNow(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, snap.Unread)
	assert.Equal(t, "backend down", snap.LastError)
	assert.False(t, snap.PolledAt.Before(first), "a failed poll still stamps the poll time")
}

// orderedSource answers its first announcements call only after release
// closes, with more items than any later call.
type orderedSource struct {
	fakeSource
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (o *orderedSource) ListUnseenAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	o.mu.Lock()
	o.calls++
	first := o.calls == 1
	o.mu.Unlock()
	if !first {
		return []models.Announcement{{ID: "a1"}, {ID: "a2"}}, nil
	}
	close(o.entered)
	<-o.release
	return []models.Announcement{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}, nil
}

func TestSlowerOlderPollIsDropped(t *testing.T) {
	src := &orderedSource{entered: make(chan struct{}), release: make(chan struct{})}
	chime := &countingChime{}
	p := NewPoller(src, chime, time.Hour)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() {
		_, err := p.PollNow(ctx)
		slow <- err
	}()
	<-src.entered

	snap, err := p.PollNow(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Unread)

	close(src.release)
	require.NoError(t, <-slow)
	assert.Equal(t, 2, p.Snapshot().Unread, "the older response must not replace the newer one")
	assert.Equal(t, 1, chime.count())
}

func TestMarkActionsRepoll(t *testing.T) {
	src := &fakeSource{}
	src.setCounts(2, 1)
	p := NewPoller(src, notify.Silent{}, time.Hour)
	ctx := context.Background()
	_, err := p.PollNow(ctx)
	require.NoError(t, err)

	snap, err := p.MarkAnnouncementSeen(ctx, "a0")
	require.NoError(t, err)
	assert.Equal(t, []string{"a0"}, src.seen)
	assert.Equal(t, 2, snap.Unread)

	link, snap, err := p.MarkNotificationRead(ctx, "n0")
	require.NoError(t, err)
	assert.Equal(t, "/campaigns", link)
	assert.Equal(t, 1, snap.Unread)
}

func TestStartPollsImmediatelyAndStopDropsStale(t *testing.T) {
	src := &fakeSource{}
	src.setCounts(1, 1)
	p := NewPoller(src, notify.Silent{}, 10*time.Millisecond)
	p.Start(context.Background())
	require.Eventually(t, func() bool { return p.Snapshot().Unread == 2 }, time.Second, 5*time.Millisecond)
	p.Stop()
	assert.False(t, p.Running())
	assert.Zero(t, p.Snapshot().Unread)

	// A poll that completes after Stop must not repopulate the snapshot.
	src.block = make(chan struct{})
	done := make(chan struct{})
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	go func() {
		defer close(done)
		_ = p.pollGen(context.Background(), gen)
	}()
	p.mu.Lock()
	p.gen++
	p.mu.Unlock()
	close(src.block)
	<-done
	assert.Zero(t, p.Snapshot().Unread)
}

func TestStartTwiceIsNoop(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src, notify.Silent{}, time.Hour)
	p.Start(context.Background())
	p.Start(context.Background())
	assert.True(t, p.Running())
	p.Stop()
	p.Stop()
}
