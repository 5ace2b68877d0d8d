// Package alerts polls the backend for unseen announcements and unread
// notifications and rings a chime when the unread total grows.
package alerts

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"messagemaster/internal/models"
	"messagemaster/internal/notify"
)

// Source is the slice of the gateway the poller uses.
type Source interface {
	ListUnseenAnnouncements(ctx context.Context) ([]models.Announcement, error)
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkAnnouncementSeen(ctx context.Context, id string) error
	MarkNotificationRead(ctx context.Context, id string) error
}

type Kind string

const (
	KindAnnouncement Kind = "announcement"
	KindNotification Kind = "notification"
)

type Alert struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Snapshot struct {
	Items         []Alert   `json:"items"`
	Unread        int       `json:"unread"`
	Announcements int       `json:"announcements"`
	Notifications int       `json:"notifications"`
	PolledAt      time.Time `json:"polled_at"`
	LastError     string    `json:"last_error,omitempty"`
}

type Poller struct {
	src      Source
	chime    notify.Chime
	interval time.Duration

	mu      sync.Mutex
	snap    Snapshot
	prev    int
	gen     uint64
	started uint64
	applied uint64
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewPoller(src Source, chime notify.Chime, interval time.Duration) *Poller {
	if chime == nil {
		chime = notify.Silent{}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{src: src, chime: chime, interval: interval, snap: Snapshot{Items: []Alert{}}}
}

// Start polls immediately and then once per interval until Stop or ctx ends.
// Calling Start on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.gen++
	gen := p.gen
	p.cancel = cancel
	prev := p.done
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		p.pollGen(ctx, gen)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.pollGen(ctx, gen)
			}
		}
	}()
	log.Printf("alert poller started interval=%s", p.interval)
}

// Stop cancels the loop and returns without waiting for it, so it is safe
// to call from a logout that a poll itself triggered. Results of polls still
// in flight are discarded. The unread baseline and snapshot reset.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.gen++
	p.running = false
	cancel := p.cancel
	p.cancel = nil
	p.snap = Snapshot{Items: []Alert{}}
	p.prev = 0
	p.mu.Unlock()

	cancel()
	log.Printf("alert poller stopped")
}

// Wait blocks until the most recent loop has exited.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.snap
	s.Items = append([]Alert(nil), p.snap.Items...)
	return s
}

// PollNow fetches outside the timer, as after a mark action.
func (p *Poller) PollNow(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	if err := p.pollGen(ctx, gen); err != nil {
		return p.Snapshot(), err
	}
	return p.Snapshot(), nil
}

// pollGen fetches once and applies the result unless Stop ran since gen was
// taken or a poll that started later has already been applied.
func (p *Poller) pollGen(ctx context.Context, gen uint64) error {
	p.mu.Lock()
	p.started++
	seq := p.started
	p.mu.Unlock()

	var (
		anns   []models.Announcement
		notifs []models.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		anns, err = p.src.ListUnseenAnnouncements(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		notifs, err = p.src.ListNotifications(gctx)
		return err
	})
	err := g.Wait()

	p.mu.Lock()
	if gen != p.gen || seq < p.applied {
		p.mu.Unlock()
		return nil
	}
	p.applied = seq
	if err != nil {
		p.snap.LastError = err.Error()
		p.snap.PolledAt = time.Now().UTC()
		p.mu.Unlock()
		log.Printf("alert poll failed error=%q", err.Error())
		return err
	}
	items := merge(anns, notifs)
	unread := len(anns) + len(notifs)
	ring := unread > p.prev
	p.prev = unread
	p.snap = Snapshot{
		Items:         items,
		Unread:        unread,
		Announcements: len(anns),
		Notifications: len(notifs),
		PolledAt:      time.Now().UTC(),
	}
	p.mu.Unlock()

	if ring {
		p.chime.Ring(unread)
	}
	return nil
}

func merge(anns []models.Announcement, notifs []models.Notification) []Alert {
	out := make([]Alert, 0, len(anns)+len(notifs))
	for _, a := range anns {
		out = append(out, Alert{
			Kind:      KindAnnouncement,
			ID:        a.ID,
			Title:     a.Title,
			Message:   a.Message,
			Link:      a.Link,
			Image:     a.Image,
			CreatedAt: a.CreatedAt,
		})
	}
	for _, n := range notifs {
		out = append(out, Alert{
			Kind:      KindNotification,
			ID:        n.ID,
			Title:     n.EventType,
			Message:   n.Message,
			Link:      n.Link,
			CreatedAt: n.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// MarkAnnouncementSeen records the click and re-polls. The counter only
// moves when the backend stops returning the announcement.
func (p *Poller) MarkAnnouncementSeen(ctx context.Context, id string) (Snapshot, error) {
	if err := p.src.MarkAnnouncementSeen(ctx, id); err != nil {
		return p.Snapshot(), err
	}
	return p.PollNow(ctx)
}

// MarkNotificationRead marks the notification read, re-polls and returns
// the link the notification points at, if any.
func (p *Poller) MarkNotificationRead(ctx context.Context, id string) (string, Snapshot, error) {
	link := ""
	for _, it := range p.Snapshot().Items {
		if it.Kind == KindNotification && it.ID == id {
			link = it.Link
			break
		}
	}
	if err := p.src.MarkNotificationRead(ctx, id); err != nil {
		return "", p.Snapshot(), err
	}
	snap, err := p.PollNow(ctx)
	return link, snap, err
}
