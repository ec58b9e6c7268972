package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// translateWriteError maps a unique violation to a concurrency conflict on resource.
// Requires gorm.Config.TranslateError.
func translateWriteError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewConcurrencyConflictError(resource)
	}
	return err
}

// notFound maps gorm.ErrRecordNotFound to the domain not-found error
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(resource)
	}
	return err
}

// lockedUpdate writes every column of model, guarded by the version the
// caller loaded (version-1, since the domain bumps it once per mutation).
// Zero rows affected means another writer got there first.
func lockedUpdate(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, version int, resource string) error {
	result := db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("id", "created_at").
		Where("id = ? AND version = ?", id, version-1).
		Updates(model)
	if result.Error != nil {
		return translateWriteError(result.Error, resource)
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyConflictError(resource)
	}
	return nil
}
