package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicportal/clinic/internal/platform/apperr"
)

var (
	ErrNotificationNotFound = apperr.NotFound("notification_not_found", "notification not found")
	ErrUnknownRole          = apperr.Validation("unknown_role", "caller has no portal role")
	ErrInvalidNotification  = apperr.Validation("invalid_notification", "notification is missing a role or type")
)

const MaxFeedLimit = 500

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "notification").Logger(), now: time.Now}
}

func (s *Service) Feed(ctx context.Context, a Audience, limit int) (*Feed, error) {
	if !a.Role.Valid() {
		return nil, ErrUnknownRole
	}
	if limit <= 0 || limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	items, unread, err := s.repo.Feed(ctx, a, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Notification{}
	}
	return &Feed{Notifications: items, UnreadCount: unread, Timestamp: s.now().UTC()}, nil
}

// MarkRead marks one notification read. Notifications outside the caller's
// feed are reported as not found.
func (s *Service) MarkRead(ctx context.Context, a Audience, id int64) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !a.Sees(n) {
		return fmt.Errorf("%w: %d", ErrNotificationNotFound, id)
	}
	if n.Read {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, a Audience) (int64, error) {
	if !a.Role.Valid() {
		return 0, ErrUnknownRole
	}
	return s.repo.MarkAllRead(ctx, a)
}

func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if !n.RecipientRole.Valid() || !n.Type.Valid() {
		return fmt.Errorf("%w: role=%q type=%q", ErrInvalidNotification, n.RecipientRole, n.Type)
	}
	n.Read = false
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.logger.Debug().Int64("notification_id", n.ID).Str("type", string(n.Type)).
		Str("role", string(n.RecipientRole)).Msg("notification created")
	return nil
}
