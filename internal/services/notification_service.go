package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gestion-backend/internal/cache"
	"gestion-backend/internal/config"
	"gestion-backend/internal/metrics"
	"gestion-backend/internal/models"
	"gestion-backend/internal/realtime"
	"gestion-backend/internal/repositories"
	"gestion-backend/internal/validation"
	"gestion-backend/internal/workflow"

	"github.com/jackc/pgx/v5"
)

// Publisher pushes events to connected clients; *realtime.Hub implements it.
type Publisher interface {
	Publish(ev realtime.Event)
}

const (
	defaultBroadcastPage = 500
	defaultPageLimit     = 50
)

type NotificationService struct {
	DB            repositories.TxBeginner
	Users         *repositories.UserRepository
	Notifications *repositories.NotificationRepository
	Outbox        *repositories.OutboxRepository
	Audit         *repositories.AuditLogRepository
	Hub           Publisher

	pollInterval time.Duration
	pageSize     int
	pageLimit    int
}

func NewNotificationService(db repositories.TxBeginner, users *repositories.UserRepository,
	notifications *repositories.NotificationRepository, outbox *repositories.OutboxRepository,
	audit *repositories.AuditLogRepository, hub Publisher, cfg *config.Config) *NotificationService {
	s := &NotificationService{
		DB:            db,
		Users:         users,
		Notifications: notifications,
		Outbox:        outbox,
		Audit:         audit,
		Hub:           hub,
		pollInterval:  cfg.Workflow.NotificationPoll,
		pageSize:      cfg.Workflow.BroadcastPageSize,
		pageLimit:     cfg.Workflow.NotificationPageLimit,
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultBroadcastPage
	}
	if s.pageLimit <= 0 {
		s.pageLimit = defaultPageLimit
	}
	return s
}

// resolveAudience returns the user ids a notice goes to. Orders without a
// technician simply skip technician notices.
func resolveAudience(order *models.Order, audience workflow.Audience, coordinators []int) []int {
	switch audience {
	case workflow.AudienceClient:
		return []int{order.ClientID}
	case workflow.AudienceTechnician:
		if order.TechnicianID != nil {
			return []int{*order.TechnicianID}
		}
	case workflow.AudienceCoordinators:
		return coordinators
	}
	return nil
}

// buildNotifications expands notices into one row per recipient. The actor
// never notifies themselves and nobody gets the same notice type twice.
func buildNotifications(order *models.Order, notices []workflow.Notice, coordinators []int, actorID int) []*models.Notification {
	var out []*models.Notification
	seen := map[string]bool{}
	for _, n := range notices {
		for _, uid := range resolveAudience(order, n.Audience, coordinators) {
			key := fmt.Sprintf("%d|%s", uid, n.Type)
			if uid == actorID || seen[key] {
				continue
			}
			seen[key] = true
			orderID := order.ID
			out = append(out, &models.Notification{
				UserID:  uid,
				OrderID: &orderID,
				Type:    n.Type,
				Message: n.Message,
			})
		}
	}
	return out
}

func outboxMessages(list []*models.Notification, contacts map[int]repositories.Recipient) []*models.OutboxMessage {
	var msgs []*models.OutboxMessage
	for _, n := range list {
		rc, ok := contacts[n.UserID]
		if !ok || strings.TrimSpace(rc.Email) == "" {
			continue
		}
		id := n.ID
		msgs = append(msgs, &models.OutboxMessage{
			NotificationID: &id,
			Recipient:      rc.Email,
			Subject:        n.Type,
			Body:           fmt.Sprintf("Hola %s,\n\n%s\n\nSistema de Gestión Técnica", rc.Name, n.Message),
		})
	}
	return msgs
}

// Deliver runs after commit: it drops stale unread counters and pushes the
// new rows to open sockets.
func (s *NotificationService) Deliver(ctx context.Context, origin string, list []*models.Notification) {
	if len(list) == 0 {
		return
	}
	ids := make([]int, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.UserID)
		if s.Hub != nil {
			s.Hub.Publish(realtime.Event{UserID: n.UserID, Kind: "notification", Data: n})
		}
	}
	cache.InvalidateUnread(ctx, ids...)
	metrics.NotificationsCreated.WithLabelValues(origin).Add(float64(len(list)))
}

// List returns one page of the user's notifications with the unread count and
// the poll interval clients should use.
func (s *NotificationService) List(ctx context.Context, userID, limit, offset int) (*models.NotificationPage, error) {
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}
	list, err := s.Notifications.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Notification{}
	}
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.NotificationPage{
		Notifications:       list,
		Unread:              unread,
		PollIntervalSeconds: int(s.pollInterval.Seconds()),
	}, nil
}

// UnreadCount is served from Redis when possible.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int) (int, error) {
	if n, ok := cache.GetUnreadCount(ctx, userID); ok {
		return n, nil
	}
	n, err := s.Notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	cache.SetUnreadCount(ctx, userID, n)
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int) error {
	if err := s.Notifications.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	cache.InvalidateUnread(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	n, err := s.Notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	cache.InvalidateUnread(ctx, userID)
	return n, nil
}

// pageRecipients walks recipients in id order, limit at a time, until a page
// comes back short.
func pageRecipients(ctx context.Context, limit int,
	fetch func(ctx context.Context, afterID, limit int) ([]repositories.Recipient, error),
	fn func(page []repositories.Recipient) error) error {
	if limit <= 0 {
		limit = defaultBroadcastPage
	}
	afterID := 0
	for {
		page, err := fetch(ctx, afterID, limit)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
			afterID = page[len(page)-1].ID
		}
		if len(page) < limit {
			return nil
		}
	}
}

// Broadcast notifies every active user of a role (or everyone). All rows are
// written in one transaction so a failed broadcast leaves nothing behind.
func (s *NotificationService) Broadcast(ctx context.Context, actor Actor, req models.BroadcastRequest) (int, error) {
	v := validation.Violations{}
	if validation.Required("message", req.Message, v) {
		validation.MaxLen("message", req.Message, 1000, v)
	}
	role := strings.TrimSpace(req.Role)
	if strings.EqualFold(role, "all") || strings.EqualFold(role, "todos") {
		role = ""
	}
	if role != "" {
		parsed, err := workflow.ParseRole(role)
		if err != nil {
			v["role"] = "Rol no válido"
		}
		role = string(parsed)
	}
	if !v.Empty() {
		return 0, v.Err()
	}
	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		kind = "Aviso General"
	}

	var created []*models.Notification
	err := repositories.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		users := s.Users.WithTx(tx)
		notifications := s.Notifications.WithTx(tx)

		err := pageRecipients(ctx, s.pageSize, func(ctx context.Context, afterID, limit int) ([]repositories.Recipient, error) {
			return users.RecipientsPage(ctx, role, afterID, limit)
		}, func(page []repositories.Recipient) error {
			batch := make([]*models.Notification, 0, len(page))
			for _, rc := range page {
				batch = append(batch, &models.Notification{UserID: rc.ID, Type: kind, Message: req.Message})
			}
			if err := notifications.CreateBatch(ctx, batch); err != nil {
				return err
			}
			created = append(created, batch...)
			return nil
		})
		if err != nil {
			return fmt.Errorf("broadcast: %w", err)
		}

		target := role
		if target == "" {
			target = "todos"
		}
		return s.Audit.WithTx(tx).Create(ctx, &models.AuditLog{
			UserID:      actor.auditUser(),
			Action:      workflow.AuditBroadcast,
			Description: fmt.Sprintf("Notificación masiva a %s (%d destinatarios): %s", target, len(created), kind),
			IPAddress:   actor.auditIP(),
		})
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[Notifications] Broadcast %q sent to %d users", kind, len(created))
	s.Deliver(ctx, "broadcast", created)
	return len(created), nil
}
