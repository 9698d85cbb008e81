package models

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sequenceTables = map[SequenceKind]string{
	SequenceKindBusiness:    "businesses",
	SequenceKindClient:      "clients",
	SequenceKindCatalogItem: "catalog_items",
	SequenceKindInvoice:     "invoices",
}

// NextSequence returns the next per-workspace sequence number for the given
// entity kind. It MUST run inside the transaction that inserts the new row:
// the FOR UPDATE read serializes concurrent creators on the workspace's rows
// so two transactions never compute the same value.
//
// Soft-deleted rows are included (Unscoped) so sequence numbers are never
// reused after a delete.
func NextSequence(tx *gorm.DB, ctx context.Context, workspaceId string, kind SequenceKind) (int, error) {
	table, ok := sequenceTables[kind]
	if !ok {
		return 0, errors.New("invalid sequence kind")
	}

	var current int
	err := tx.WithContext(ctx).
		Table(table).
		Unscoped().
		Where("workspace_id = ?", workspaceId).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}

	return current + 1, nil
}

// sequenceConflictRetries bounds how many times a create is replayed when two
// transactions race for the same number.
const sequenceConflictRetries = 3

// isSequenceConflict reports whether an insert was rejected by the
// (workspace_id, sequence) unique index. MySQL error 1062 surfaces either as
// gorm's translated error or as a raw "Duplicate entry" message depending on
// driver configuration.
func isSequenceConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// retryOnSequenceConflict replays a create whose number assignment lost a
// race. Under READ COMMITTED the MAX+1 read in NextSequence takes no gap lock
// when the workspace has no rows yet, so two first inserts can compute the
// same number; the unique index rejects the loser and the replay re-reads.
func retryOnSequenceConflict[T any](op func() (*T, error)) (*T, error) {
	var out *T
	var err error
	for attempt := 0; attempt <= sequenceConflictRetries; attempt++ {
		out, err = op()
		if err == nil || !isSequenceConflict(err) {
			return out, err
		}
	}
	return out, err
}

// PeekNextSequence reads the next sequence outside any transaction. Display
// convenience only (invoice number suggestion); the authoritative value is
// assigned by NextSequence at creation time.
func PeekNextSequence(db *gorm.DB, ctx context.Context, workspaceId string, kind SequenceKind) (int, error) {
	table, ok := sequenceTables[kind]
	if !ok {
		return 0, errors.New("invalid sequence kind")
	}

	var current int
	err := db.WithContext(ctx).
		Table(table).
		Unscoped().
		Where("workspace_id = ?", workspaceId).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}
