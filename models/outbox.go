package models

import (
	"time"

	"github.com/adstrategic/addinvoice/config"
)

// NotificationRecord is an outbox row: written in the same transaction as the
// mutation that triggers it, published after commit by the dispatcher.
type NotificationRecord struct {
	ID            int                `gorm:"primary_key;index:idx_notification_dispatch,priority:3" json:"id"`
	WorkspaceId   string             `gorm:"size:64;not null;index" json:"workspace_id"`
	Kind          NotificationKind   `gorm:"size:32;not null" json:"kind"`
	ReferenceId   int                `json:"reference_id"`
	ReferenceType string             `gorm:"size:32" json:"reference_type"`
	Recipient     string             `gorm:"size:255" json:"recipient"`
	Payload       []byte             `gorm:"type:blob" json:"payload"`
	PublishStatus NotificationStatus `gorm:"size:20;index;not null;default:'PENDING';index:idx_notification_dispatch,priority:1" json:"publish_status"`
	PublishedAt   *time.Time         `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_notification_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToNotificationMessage(record NotificationRecord) config.NotificationMessage {
	return config.NotificationMessage{
		ID:            record.ID,
		WorkspaceId:   record.WorkspaceId,
		Kind:          string(record.Kind),
		ReferenceId:   record.ReferenceId,
		ReferenceType: record.ReferenceType,
		Recipient:     record.Recipient,
		Payload:       record.Payload,
		EnqueuedAt:    record.CreatedAt,
		CorrelationId: record.CorrelationId,
	}
}
