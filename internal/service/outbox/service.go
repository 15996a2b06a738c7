package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
)

// Config holds dispatcher configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	MaxAttempts   int           // default: 10
}

// Sink delivers one event to the notification side.
type Sink interface {
	Deliver(ctx context.Context, e outbox.Event) error
}

type DispatcherImpl struct {
	tx database.Transactor
	outbox.OutboxRepository
	sink   Sink
	config Config

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewDispatcher(tx database.Transactor, repo outbox.OutboxRepository, sink Sink, cfg Config) *DispatcherImpl {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 10
	}
	return &DispatcherImpl{
		tx:               tx,
		OutboxRepository: repo,
		sink:             sink,
		config:           cfg,
		stopCh:           make(chan struct{}),
	}
}

// Start runs the background worker until Stop.
func (d *DispatcherImpl) Start() {
	d.wg.Add(1)
	go d.worker()
	slog.Info("Outbox dispatcher started", "batch_size", d.config.BatchSize, "flush_interval", d.config.FlushInterval)
}

func (d *DispatcherImpl) worker() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.FlushInterval)
	defer ticker.Stop()

	drain := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := d.Drain(ctx); err != nil {
			slog.Error("Outbox flush failed", "error", err)
		}
	}

	for {
		select {
		case <-ticker.C:
			drain()
		case <-d.stopCh:
			drain()
			return
		}
	}
}

// Drain flushes batches until a batch comes back short or delivers nothing.
func (d *DispatcherImpl) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, claimed, err := d.flush(ctx)
		total += n
		if err != nil || claimed < d.config.BatchSize || n == 0 {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

// Flush delivers one batch and returns how many events were dispatched.
func (d *DispatcherImpl) Flush(ctx context.Context) (int, error) {
	n, _, err := d.flush(ctx)
	return n, err
}

func (d *DispatcherImpl) flush(ctx context.Context) (dispatched, claimed int, err error) {
	err = d.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		dispatched, claimed = 0, 0
		events, err := d.OutboxRepository.ClaimPending(txCtx, d.config.BatchSize, d.config.MaxAttempts)
		if err != nil {
			return fmt.Errorf("failed to claim outbox events: %w", err)
		}
		claimed = len(events)

		var done []string
		for _, e := range events {
			if err := d.sink.Deliver(txCtx, e); err != nil {
				slog.Warn("Outbox delivery failed", "event_id", e.ID, "type", e.Type, "attempts", e.Attempts+1, "error", err)
				if err := d.OutboxRepository.MarkFailed(txCtx, e.ID, err.Error()); err != nil {
					return fmt.Errorf("failed to record delivery failure: %w", err)
				}
				if e.Attempts+1 >= d.config.MaxAttempts {
					slog.Error("Outbox event exhausted its attempts", "event_id", e.ID, "type", e.Type, "alert", true)
				}
				continue
			}
			done = append(done, e.ID)
		}
		if len(done) == 0 {
			return nil
		}
		if err := d.OutboxRepository.MarkDispatched(txCtx, done); err != nil {
			return fmt.Errorf("failed to mark events dispatched: %w", err)
		}
		dispatched = len(done)
		return nil
	})
	if dispatched > 0 {
		slog.Debug("Outbox events dispatched", "count", dispatched)
	}
	return dispatched, claimed, err
}

// Run adapts Drain to the cron job signature.
func (d *DispatcherImpl) Run(ctx context.Context) error {
	_, err := d.Drain(ctx)
	return err
}

// Stop flushes what is pending and waits for the worker.
func (d *DispatcherImpl) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
		slog.Info("Outbox dispatcher stopped")
	})
}

// MultiSink delivers to every sink and reports the joined failures.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, e outbox.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
