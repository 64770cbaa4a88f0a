package services

import (
	"context"
	"testing"
	"time"

	"gestion-backend/internal/email"
	"gestion-backend/internal/models"

	"github.com/google/uuid"
)

type outboxWrite struct {
	kind string
	id   uuid.UUID
	next time.Time
}

// memOutbox refuses writes on a finished context, like pgx does.
type memOutbox struct {
	due    []*models.OutboxMessage
	lease  time.Duration
	writes []outboxWrite
}

func (o *memOutbox) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.OutboxMessage, error) {
	o.lease = lease
	if len(o.due) > limit {
		return o.due[:limit], nil
	}
	return o.due, nil
}

func (o *memOutbox) write(ctx context.Context, w outboxWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.writes = append(o.writes, w)
	return nil
}

func (o *memOutbox) MarkSent(ctx context.Context, id uuid.UUID) error {
	return o.write(ctx, outboxWrite{kind: "sent", id: id})
}

func (o *memOutbox) MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, _ string) error {
	return o.write(ctx, outboxWrite{kind: "retry", id: id, next: next})
}

func (o *memOutbox) MarkFailed(ctx context.Context, id uuid.UUID, _ string) error {
	return o.write(ctx, outboxWrite{kind: "failed", id: id})
}

func (o *memOutbox) CountByStatus(ctx context.Context) (map[string]int, error) {
	return map[string]int{}, ctx.Err()
}

// scriptedSender answers the n-th send with results[n] and runs onSend[n]
// first, if set.
type scriptedSender struct {
	results []error
	onSend  map[int]func()
	sent    []string
}

func (s *scriptedSender) Name() string { return "scripted" }

func (s *scriptedSender) Send(ctx context.Context, msg email.Message) error {
	n := len(s.sent)
	s.sent = append(s.sent, msg.To)
	if f := s.onSend[n]; f != nil {
		f()
	}
	if n < len(s.results) {
		return s.results[n]
	}
	return nil
}

func queuedMessages(attempts ...int) []*models.OutboxMessage {
	var out []*models.OutboxMessage
	for i, a := range attempts {
		out = append(out, &models.OutboxMessage{
			ID:        uuid.New(),
			Recipient: []string{"ana@example.com", "luis@example.com", "marta@example.com"}[i%3],
			Subject:   "Orden Asignada",
			Attempts:  a,
		})
	}
	return out
}

func TestDispatchOnce_RecordsDeliveriesPastTheDeadline(t *testing.T) {
	msgs := queuedMessages(0, 0, 0)
	store := &memOutbox{due: msgs}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the batch deadline passes while the second message is on the wire
	sender := &scriptedSender{onSend: map[int]func(){1: cancel}}
	d := NewOutboxDispatcher(store, sender, 15*time.Second, 20, 5)

	sent, err := d.DispatchOnce(ctx)
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if sent != 2 || len(sender.sent) != 2 {
		t.Fatalf("sent=%d tried=%d, want 2 and 2", sent, len(sender.sent))
	}
	if len(store.writes) != 2 {
		t.Fatalf("writes = %+v", store.writes)
	}
	for i, w := range store.writes {
		if w.kind != "sent" || w.id != msgs[i].ID {
			t.Fatalf("write %d = %+v", i, w)
		}
	}
	if store.lease <= d.batchTimeout {
		t.Fatalf("lease %s must outlast the batch timeout %s", store.lease, d.batchTimeout)
	}
}

func TestDispatchOnce_Outcomes(t *testing.T) {
	msgs := queuedMessages(0, 4, 0)
	store := &memOutbox{due: msgs}
	sender := &scriptedSender{results: []error{
		&email.StatusError{Provider: "scripted", Code: 502},
		&email.StatusError{Provider: "scripted", Code: 502},
		&email.StatusError{Provider: "scripted", Code: 400},
	}}
	d := NewOutboxDispatcher(store, sender, 15*time.Second, 20, 5)

	before := time.Now().UTC()
	sent, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent = %d", sent)
	}

	want := []string{"retry", "failed", "failed"}
	if len(store.writes) != len(want) {
		t.Fatalf("writes = %+v", store.writes)
	}
	for i, w := range store.writes {
		if w.kind != want[i] || w.id != msgs[i].ID {
			t.Fatalf("write %d = %+v, want %s", i, w, want[i])
		}
	}
	if !store.writes[0].next.After(before) {
		t.Fatalf("retry scheduled at %s, not after %s", store.writes[0].next, before)
	}
}

func TestDispatchOnce_BatchLimit(t *testing.T) {
	store := &memOutbox{due: queuedMessages(0, 0, 0)}
	sender := &scriptedSender{}
	d := NewOutboxDispatcher(store, sender, time.Second, 2, 5)

	sent, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if sent != 2 || len(sender.sent) != 2 {
		t.Fatalf("sent=%d tried=%d", sent, len(sender.sent))
	}
}
