package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/security"
	"github.com/muxdry/storefront-backend/pkg/storage"
	"gorm.io/gorm"
)

const maxBodyLength = 5000

type repository interface {
	OrderOwner(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, msg *models.OrderMessage) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderMessage, error)
	MarkReadByOwner(ctx context.Context, orderID uuid.UUID, at time.Time) error
	MarkReadByAdmin(ctx context.Context, orderID uuid.UUID, at time.Time) error
	CountUnreadForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadForAdmin(ctx context.Context) (int64, error)
}

// Service is the per-order chat between a customer and staff.
type Service interface {
	ListThread(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]MessageDTO, error)
	Send(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input SendInput) (*MessageDTO, error)
	UnreadForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (int64, error)
	UnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadForAdmin(ctx context.Context, actor auth.Actor) (int64, error)
}

type ServiceParams struct {
	Repo           repository
	Cipher         *security.MessageCipher
	Storage        storage.Store
	MaxUploadBytes int64
	Logger         *logger.Logger
}

type service struct {
	repo     repository
	cipher   *security.MessageCipher
	store    storage.Store
	maxBytes int64
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("messages repository required")
	}
	if params.Cipher == nil {
		return nil, fmt.Errorf("message cipher required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage required")
	}
	return &service{
		repo:     params.Repo,
		cipher:   params.Cipher,
		store:    params.Storage,
		maxBytes: params.MaxUploadBytes,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// authorize lets the owner or staff into a thread. Anyone else sees NOT_FOUND.
func (s *service) authorize(ctx context.Context, actor auth.Actor, orderID uuid.UUID) error {
	owner, err := s.repo.OrderOwner(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if owner != actor.UserID && !actor.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return nil
}

// ListThread returns the order's messages oldest first after marking the other side's messages read.
func (s *service) ListThread(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]MessageDTO, error) {
	if err := s.authorize(ctx, actor, orderID); err != nil {
		return nil, err
	}
	now := s.now()
	var err error
	if actor.IsStaff() {
		err = s.repo.MarkReadByAdmin(ctx, orderID, now)
	} else {
		err = s.repo.MarkReadByOwner(ctx, orderID, now)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}

	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	out := make([]MessageDTO, 0, len(rows))
	for i := range rows {
		body, err := s.cipher.Open(rows[i].Body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrypt message")
		}
		out = append(out, newMessageDTO(&rows[i], body))
	}
	return out, nil
}

func (s *service) Send(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input SendInput) (*MessageDTO, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" && len(input.Image) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message or image required")
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "message exceeds %d characters", maxBodyLength)
	}
	if err := s.authorize(ctx, actor, orderID); err != nil {
		return nil, err
	}

	sealed, err := s.cipher.Seal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encrypt message")
	}
	msg := &models.OrderMessage{
		OrderID:     orderID,
		SenderID:    actor.UserID,
		Body:        sealed,
		IsFromAdmin: actor.IsStaff(),
	}

	var key string
	if len(input.Image) > 0 {
		image, err := storage.ValidateImage(input.Image, s.maxBytes)
		if err != nil {
			return nil, err
		}
		key = storage.ObjectKey("orders/"+orderID.String()+"/messages", s.now(), image.Extension)
		url, err := s.store.Put(ctx, key, image.ContentType, image.Data)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
		}
		msg.ImageURL = &url
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		if key != "" {
			if delErr := s.store.Delete(ctx, key); delErr != nil && s.logg != nil {
				s.logg.Error(s.logg.WithField(ctx, "object", key), "remove orphaned message image", delErr)
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save message")
	}
	dto := newMessageDTO(msg, body)
	return &dto, nil
}

// UnreadForOrder counts staff messages the owner has not read on one order.
func (s *service) UnreadForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (int64, error) {
	if err := s.authorize(ctx, actor, orderID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnreadForOrder(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	return count, nil
}

func (s *service) UnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnreadForUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	return count, nil
}

func (s *service) UnreadForAdmin(ctx context.Context, actor auth.Actor) (int64, error) {
	if !actor.IsStaff() {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	count, err := s.repo.CountUnreadForAdmin(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	return count, nil
}
