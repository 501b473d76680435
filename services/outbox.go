package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/gorm"
)

// EventSink receives batches of order events. Deliver must be safe to call
// again with events it already accepted.
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, events []models.OrderEvent) error
}

// OutboxDispatcher reads the order event outbox and hands new events to every
// sink. Each sink keeps its own cursor, so a failing sink is retried alone
// while the others move on. An event is marked dispatched once every sink has
// read past it.
type OutboxDispatcher struct {
	DB          *gorm.DB
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int

	sinks []EventSink
	kick  chan struct{}
	mu    sync.Mutex
}

func NewOutboxDispatcher(db *gorm.DB, sinks ...EventSink) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:          db,
		Interval:    500 * time.Millisecond,
		BatchSize:   100,
		MaxAttempts: 20,
		sinks:       sinks,
		kick:        make(chan struct{}, 1),
	}
}

// AddSink registers another sink. It must be called before Run.
func (d *OutboxDispatcher) AddSink(s EventSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// Notify wakes Run for an immediate pass. It never blocks; kicks that arrive
// while a pass is pending are merged.
func (d *OutboxDispatcher) Notify() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run dispatches on every tick and on every Notify until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	utils.InfoLogger.WithField("interval", d.Interval).Info("outbox dispatcher started")
	for {
		select {
		case <-ctx.Done():
			utils.InfoLogger.Info("outbox dispatcher stopped")
			return nil
		case <-ticker.C:
		case <-d.kick:
		}
		if _, err := d.Flush(ctx); err != nil && ctx.Err() == nil {
			utils.ErrorLogger.WithError(err).Error("outbox dispatch failed")
		}
	}
}

// Flush runs every sink up to the end of the outbox and returns how many
// events became fully dispatched. Concurrent calls are serialised.
func (d *OutboxDispatcher) Flush(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.sinks) == 0 {
		return 0, nil
	}

	var errs []error
	positions := make([]uint, 0, len(d.sinks))
	for _, sink := range d.sinks {
		pos, err := d.flushSink(ctx, sink)
		if err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
		positions = append(positions, pos)
	}

	res := d.DB.WithContext(ctx).Model(&models.OrderEvent{}).
		Where("id <= ? AND dispatched_at IS NULL", slices.Min(positions)).
		UpdateColumn("dispatched_at", time.Now())
	if res.Error != nil {
		errs = append(errs, fmt.Errorf("mark events dispatched: %w", res.Error))
	}
	return int(res.RowsAffected), errors.Join(errs...)
}

// flushSink delivers batches past the sink's cursor and returns the id of the
// last event the sink is done with.
func (d *OutboxDispatcher) flushSink(ctx context.Context, sink EventSink) (uint, error) {
	cur, err := d.cursor(ctx, sink.Name())
	if err != nil {
		return 0, err
	}

	for {
		var events []models.OrderEvent
		if err := d.DB.WithContext(ctx).
			Where("id > ?", cur.LastEventID).
			Order("id ASC").
			Limit(d.BatchSize).
			Find(&events).Error; err != nil {
			return cur.LastEventID, fmt.Errorf("load pending events: %w", err)
		}
		if len(events) == 0 {
			return cur.LastEventID, nil
		}
		first, last := events[0], events[len(events)-1]
		done := cur.LastEventID

		if derr := sink.Deliver(ctx, events); derr != nil {
			d.countAttempt(ctx, events)
			cur.Attempts++
			if cur.Attempts >= d.MaxAttempts {
				utils.ErrorLogger.WithFields(logrus.Fields{
					"sink":     sink.Name(),
					"first":    first.EventID,
					"last":     last.EventID,
					"count":    len(events),
					"attempts": cur.Attempts,
				}).WithError(derr).Error("order events skipped after repeated delivery failures")
				cur.LastEventID = last.ID
				cur.Attempts = 0
			}
			if err := d.DB.WithContext(ctx).Save(cur).Error; err != nil {
				return done, fmt.Errorf("save cursor: %w", err)
			}
			return cur.LastEventID, derr
		}

		cur.LastEventID = last.ID
		cur.Attempts = 0
		if err := d.DB.WithContext(ctx).Save(cur).Error; err != nil {
			return done, fmt.Errorf("save cursor: %w", err)
		}

		utils.InfoLogger.WithFields(logrus.Fields{
			"sink":  sink.Name(),
			"count": len(events),
			"first": first.EventID,
		}).Debug("order events delivered")

		if len(events) < d.BatchSize {
			return cur.LastEventID, nil
		}
	}
}

// cursor loads the sink's position. A sink seen for the first time starts
// after the events that are already dispatched.
func (d *OutboxDispatcher) cursor(ctx context.Context, name string) (*models.OutboxCursor, error) {
	var cur models.OutboxCursor
	err := d.DB.WithContext(ctx).Where("sink = ?", name).Take(&cur).Error
	if err == nil {
		return &cur, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load cursor: %w", err)
	}

	var start uint
	if err := d.DB.WithContext(ctx).Model(&models.OrderEvent{}).
		Where("dispatched_at IS NOT NULL").
		Select("COALESCE(MAX(id), 0)").
		Scan(&start).Error; err != nil {
		return nil, fmt.Errorf("locate cursor start: %w", err)
	}
	cur = models.OutboxCursor{Sink: name, LastEventID: start}
	if err := d.DB.WithContext(ctx).Create(&cur).Error; err != nil {
		return nil, fmt.Errorf("create cursor: %w", err)
	}
	return &cur, nil
}

func (d *OutboxDispatcher) countAttempt(ctx context.Context, events []models.OrderEvent) {
	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if err := d.DB.WithContext(ctx).Model(&models.OrderEvent{}).
		Where("id IN ?", ids).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
		utils.ErrorLogger.WithError(err).Error("record outbox attempt failed")
	}
}
