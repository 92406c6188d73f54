// Package publisher runs the live-view loop: a periodic snapshot of the
// machine registry with the offline overlay applied, broadcast to every
// subscribed stream.
package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"shopfloor-status-backend/internal/liveness"
	"shopfloor-status-backend/internal/store"
)

// MachineView is one machine in a published snapshot: the registry row with
// the displayed status substituted for the reported one.
type MachineView struct {
	store.MachineRow
	SecondsSinceSeen *int64 `json:"secondsSinceSeen"`
}

type subscriber struct {
	ch chan []MachineView
}

// Publisher periodically snapshots the registry and fans the result out to
// subscribers. Slow subscribers skip frames instead of stalling the loop.
type Publisher struct {
	store     store.Store
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	log       *logrus.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// New creates a publisher. now is injectable for tests; nil means wall clock.
func New(s store.Store, interval, offlineThreshold time.Duration, log *logrus.Logger, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	return &Publisher{
		store:     s,
		interval:  interval,
		threshold: offlineThreshold,
		now:       now,
		log:       log,
		subs:      make(map[*subscriber]struct{}),
	}
}

// Subscribe registers a new stream. The returned cancel func detaches the
// subscriber; calling it never disturbs other subscribers or the loop.
func (p *Publisher) Subscribe() (<-chan []MachineView, func()) {
	sub := &subscriber{ch: make(chan []MachineView, 1)}
	p.mu.Lock()
	p.subs[sub] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, sub)
			p.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Run executes the snapshot loop until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	p.log.WithField("interval", p.interval).Info("live view publisher started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("live view publisher stopping")
			return
		case <-ticker.C:
			if p.subscriberCount() == 0 {
				continue
			}
			snapshot, err := p.Snapshot(ctx)
			if err != nil {
				p.log.WithError(err).Warn("live view snapshot failed")
				continue
			}
			p.broadcast(snapshot)
		}
	}
}

// Snapshot reads the registry and applies the liveness overlay, using the
// same evaluation as every other read path.
func (p *Publisher) Snapshot(ctx context.Context) ([]MachineView, error) {
	rows, err := p.store.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	now := p.now()
	views := make([]MachineView, 0, len(rows))
	for _, row := range rows {
		row.Status = liveness.DisplayedStatus(row.Status, row.LastSeen, now, p.threshold)
		views = append(views, MachineView{
			MachineRow:       row,
			SecondsSinceSeen: liveness.SecondsSinceSeen(row.LastSeen, now),
		})
	}
	return views, nil
}

func (p *Publisher) subscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Publisher) broadcast(snapshot []MachineView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sub := range p.subs {
		select {
		case sub.ch <- snapshot:
		default:
			// Subscriber still draining the previous frame; drop this one.
		}
	}
}
