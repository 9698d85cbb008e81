package models

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestRetryOnSequenceConflict(t *testing.T) {
	type result struct{ Sequence int }

	t.Run("replays duplicate-key rejections", func(t *testing.T) {
		calls := 0
		out, err := retryOnSequenceConflict(func() (*result, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("Error 1062 (23000): Duplicate entry '1-1' for key 'uix_invoices_workspace_sequence'")
			}
			return &result{Sequence: 3}, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Fatalf("calls = %d, want 3", calls)
		}
		if out.Sequence != 3 {
			t.Fatalf("sequence = %d, want 3", out.Sequence)
		}
	})

	t.Run("recognizes gorm translated duplicates", func(t *testing.T) {
		calls := 0
		_, err := retryOnSequenceConflict(func() (*result, error) {
			calls++
			if calls == 1 {
				return nil, gorm.ErrDuplicatedKey
			}
			return &result{Sequence: 2}, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Fatalf("calls = %d, want 2", calls)
		}
	})

	t.Run("other errors return immediately", func(t *testing.T) {
		calls := 0
		boom := errors.New("connection reset")
		_, err := retryOnSequenceConflict(func() (*result, error) {
			calls++
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
		if calls != 1 {
			t.Fatalf("calls = %d, want 1", calls)
		}
	})

	t.Run("gives up after bounded retries", func(t *testing.T) {
		calls := 0
		_, err := retryOnSequenceConflict(func() (*result, error) {
			calls++
			return nil, gorm.ErrDuplicatedKey
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			t.Fatalf("err = %v, want duplicated key", err)
		}
		if calls != sequenceConflictRetries+1 {
			t.Fatalf("calls = %d, want %d", calls, sequenceConflictRetries+1)
		}
	})
}
