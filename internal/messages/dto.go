package messages

import (
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
)

// MessageDTO is one chat entry with its body already decrypted.
type MessageDTO struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	SenderID      uuid.UUID  `json:"sender_id"`
	SenderName    string     `json:"sender_name"`
	Body          string     `json:"message"`
	ImageURL      *string    `json:"image_url,omitempty"`
	IsFromAdmin   bool       `json:"is_from_admin"`
	CreatedAt     time.Time  `json:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	ReadByAdminAt *time.Time `json:"read_by_admin_at,omitempty"`
}

// SendInput is a new message. Image holds raw upload bytes and may be empty.
type SendInput struct {
	Body  string
	Image []byte
}

// UnreadDTO is a badge count.
type UnreadDTO struct {
	Unread int64 `json:"unread"`
}

func newMessageDTO(m *models.OrderMessage, body string) MessageDTO {
	dto := MessageDTO{
		ID:            m.ID,
		OrderID:       m.OrderID,
		SenderID:      m.SenderID,
		Body:          body,
		ImageURL:      m.ImageURL,
		IsFromAdmin:   m.IsFromAdmin,
		CreatedAt:     m.CreatedAt,
		ReadAt:        m.ReadAt,
		ReadByAdminAt: m.ReadByAdminAt,
	}
	if m.Sender != nil {
		dto.SenderName = m.Sender.FullName()
	}
	return dto
}
