package postgres

import (
	"errors"
	"testing"

	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	t.Parallel()

	t.Run("connection failure is a persistence error", func(t *testing.T) {
		t.Parallel()
		err := storeError("checkpoint", "save", errors.New("connection refused"))

		var storeErr *store.StoreError
		assert.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "checkpoint", storeErr.Entity)
		assert.Equal(t, "save", storeErr.Operation)
		assert.ErrorIs(t, err, store.ErrPersistence)
	})

	t.Run("constraint failure is not a persistence error", func(t *testing.T) {
		t.Parallel()
		err := storeError("chapter_content", "save", &pgconn.PgError{Code: foreignKeyViolationCode})

		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NotErrorIs(t, err, store.ErrPersistence)
	})
}
