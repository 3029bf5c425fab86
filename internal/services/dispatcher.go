package services

import (
	"context"
	"sync"
	"time"

	"pulsecrm/internal/metrics"
	"pulsecrm/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventDispatcher is the hard async boundary between CRUD callers and the
// automation engine. Dispatch never blocks: events land on a bounded queue
// drained by worker goroutines, and a full queue drops the event with a
// warning rather than stalling the request that raised it.
type EventDispatcher struct {
	db          *gorm.DB
	logger      *logrus.Logger
	enrollments *EnrollmentService

	queue   chan Event
	workers int
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

func NewEventDispatcher(db *gorm.DB, logger *logrus.Logger, enrollments *EnrollmentService, queueSize, workers int) *EventDispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 4
	}
	return &EventDispatcher{
		db:          db,
		logger:      logger,
		enrollments: enrollments,
		queue:       make(chan Event, queueSize),
		workers:     workers,
	}
}

// Start launches the worker pool.
func (d *EventDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for ev := range d.queue {
				d.Process(context.Background(), ev)
			}
		}()
	}
}

// Dispatch enqueues an event, fire-and-forget from the caller's view.
// Events arriving after shutdown are dropped.
func (d *EventDispatcher) Dispatch(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.IncEventDropped()
		return
	}
	select {
	case d.queue <- ev:
		metrics.IncEventQueued(ev.Type)
	default:
		metrics.IncEventDropped()
		d.logger.Warnf("automation: event queue full, dropping %s for %s %d",
			ev.Type, ev.EntityType, ev.EntityID)
	}
}

// Process fans one event out to every matching automation. Exported so the
// batch/test paths can run an event synchronously through the same code the
// workers use. Matching automations are independent; no ordering between
// them is guaranteed or needed.
func (d *EventDispatcher) Process(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var automations []models.Automation
	if err := d.db.WithContext(ctx).
		Where("user_id = ? AND trigger_type = ? AND is_active = ?", ev.UserID, ev.Type, true).
		Find(&automations).Error; err != nil {
		d.logger.Warnf("automation: load automations failed: %v", err)
		return
	}
	for i := range automations {
		d.enrollments.Run(ctx, &automations[i], ev)
	}
}

// Shutdown stops accepting work and waits for the queue to drain or the
// context to expire.
func (d *EventDispatcher) Shutdown(ctx context.Context) error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.queue)
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
