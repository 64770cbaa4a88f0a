package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"gestion-backend/internal/apperrors"
	"gestion-backend/internal/email"
	"gestion-backend/internal/metrics"
	"gestion-backend/internal/models"

	"github.com/google/uuid"
)

const (
	outboxBaseDelay    = 30 * time.Second
	outboxMaxDelay     = time.Hour
	outboxWriteTimeout = 10 * time.Second
)

// OutboxStore is the queue the dispatcher drains;
// *repositories.OutboxRepository implements it.
type OutboxStore interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.OutboxMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// OutboxDispatcher sends the queued email copies of notifications. Several
// instances can run against the same database; a claimed row is leased to
// one of them until its result is recorded or the lease runs out.
type OutboxDispatcher struct {
	outbox       OutboxStore
	sender       email.Sender
	interval     time.Duration
	batchTimeout time.Duration
	lease        time.Duration
	batchSize    int
	maxAttempts  int
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewOutboxDispatcher(outbox OutboxStore, sender email.Sender,
	interval time.Duration, batchSize, maxAttempts int) *OutboxDispatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OutboxDispatcher{
		outbox:       outbox,
		sender:       sender,
		interval:     interval,
		batchTimeout: interval * 4,
		lease:        interval * 8,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the dispatch loop
func (d *OutboxDispatcher) Start() {
	log.Printf("[Outbox] Starting dispatcher (provider=%s, every %s)", d.sender.Name(), d.interval)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), d.batchTimeout)
				if _, err := d.DispatchOnce(ctx); err != nil {
					log.Printf("[Outbox] Dispatch failed: %v", err)
				}
				cancel()
			case <-d.stopChan:
				log.Println("[Outbox] Stopping dispatcher...")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight batch to finish.
func (d *OutboxDispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
}

// DispatchOnce leases one batch of due messages and tries each of them. It
// returns how many were sent. Sends share ctx; each result is written with
// its own deadline so an expired batch still records what was delivered.
// Messages not tried before ctx ends wait for their lease to expire.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	msgs, err := d.outbox.ClaimDue(ctx, now, d.lease, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}

	sent := 0
	var errs []error
	for _, m := range msgs {
		if ctx.Err() != nil {
			break
		}
		sendErr := d.sender.Send(ctx, email.Message{To: m.Recipient, Subject: m.Subject, Text: m.Body})
		outcome := "sent"
		switch {
		case sendErr == nil:
			err = d.record(ctx, func(wctx context.Context) error { return d.outbox.MarkSent(wctx, m.ID) })
			sent++
		case giveUp(sendErr, m.Attempts+1, d.maxAttempts):
			outcome = "failed"
			log.Printf("[Outbox] Giving up on %s to %s after %d attempts: %v", m.ID, m.Recipient, m.Attempts+1, sendErr)
			err = d.record(ctx, func(wctx context.Context) error { return d.outbox.MarkFailed(wctx, m.ID, sendErr.Error()) })
		default:
			outcome = "retry"
			next := nextAttempt(m.Attempts+1, now)
			err = d.record(ctx, func(wctx context.Context) error { return d.outbox.MarkRetry(wctx, m.ID, next, sendErr.Error()) })
		}
		metrics.OutboxDeliveries.WithLabelValues(d.sender.Name(), outcome).Inc()
		if err != nil {
			log.Printf("[Outbox] Failed to record %s for %s: %v", outcome, m.ID, err)
			errs = append(errs, err)
		}
	}

	d.record(ctx, func(wctx context.Context) error { d.refreshGauge(wctx); return nil })
	return sent, errors.Join(errs...)
}

// record runs a bookkeeping write detached from the batch deadline.
func (d *OutboxDispatcher) record(ctx context.Context, write func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outboxWriteTimeout)
	defer cancel()
	return write(wctx)
}

func (d *OutboxDispatcher) refreshGauge(ctx context.Context) {
	counts, err := d.outbox.CountByStatus(ctx)
	if err != nil {
		return
	}
	for _, status := range []string{"pending", "sent", "failed"} {
		metrics.OutboxMessages.WithLabelValues(status).Set(float64(counts[status]))
	}
}

// giveUp reports whether a message that failed for the attempts-th time
// should be marked failed instead of retried.
func giveUp(err error, attempts, maxAttempts int) bool {
	if errors.Is(err, email.ErrEmailDisabled) || errors.Is(err, email.ErrProviderNotImplemented) {
		return true
	}
	if !apperrors.Retryable(err) {
		return true
	}
	return attempts >= maxAttempts
}

// nextAttempt doubles the delay after every failure, capped at one hour.
func nextAttempt(attempts int, now time.Time) time.Time {
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(float64(outboxBaseDelay) * math.Pow(2, float64(attempts-1)))
	if delay > outboxMaxDelay || delay <= 0 {
		delay = outboxMaxDelay
	}
	return now.Add(delay)
}
