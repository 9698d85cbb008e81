package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adstrategic/addinvoice/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnqueueNotification implements the transactional outbox: it writes the
// notification record inside the caller's DB transaction but does NOT publish
// to Pub/Sub. Publishing is performed asynchronously by the dispatcher after
// commit.
func EnqueueNotification(ctx context.Context, db *gorm.DB, workspaceId string, kind NotificationKind, refId int, refType string, recipient string, payload interface{}) error {

	payloadInByte, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	record := NotificationRecord{
		WorkspaceId:   workspaceId,
		Kind:          kind,
		ReferenceId:   refId,
		ReferenceType: refType,
		Recipient:     recipient,
		Payload:       payloadInByte,
		PublishStatus: NotificationStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return db.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func nowPtr() *time.Time {
	t := time.Now().UTC()
	return &t
}
