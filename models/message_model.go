package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Room        string     `gorm:"size:100;index" json:"room,omitempty"`
	SenderID    uuid.UUID  `gorm:"type:uuid;not null" json:"sender_id"`
	RecipientID *uuid.UUID `gorm:"type:uuid;index" json:"recipient_id,omitempty"`
	Content     string     `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
