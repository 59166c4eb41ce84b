package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/transfer"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
)

func setupTransferTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.TransferModel{}, &models.TransferItemModel{})
	require.NoError(t, err)

	return db
}

func boolPtr(b bool) *bool {
	return &b
}

func newPersistedTransfer(t *testing.T, repo *GormTransferRepository) *transfer.Transfer {
	t.Helper()
	ctx := context.Background()

	number, err := repo.NextTransferNumber(ctx, time.Now())
	require.NoError(t, err)

	tr, err := transfer.NewTransfer(number, "WH01", "WH02", uuid.New())
	require.NoError(t, err)

	flags := transfer.ItemMasterFlags{SerialManaged: boolPtr(true), BatchManaged: boolPtr(false)}
	_, err = tr.AddLines("WIDGET-001", "Widget A", "pcs", flags, decimal.NewFromInt(2))
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, tr))
	return tr
}

func TestGormTransferRepository_SaveAndFind(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRepository(db)
	ctx := context.Background()

	t.Run("round trips a transfer with its lines", func(t *testing.T) {
		tr := newPersistedTransfer(t, repo)

		found, err := repo.FindByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, tr.TransferNumber, found.TransferNumber)
		assert.Equal(t, transfer.TransferStatusDraft, found.Status)
		require.Len(t, found.Items, 2)
		assert.Equal(t, "WIDGET-001", found.Items[0].ItemCode)
		assert.Equal(t, transfer.ItemTypeSerial, found.Items[0].ItemType)
		assert.True(t, found.Items[0].ExpectedQuantity.Equal(decimal.NewFromInt(1)))
	})

	t.Run("finds by transfer number", func(t *testing.T) {
		tr := newPersistedTransfer(t, repo)

		found, err := repo.FindByTransferNumber(ctx, tr.TransferNumber)
		require.NoError(t, err)
		assert.Equal(t, tr.ID, found.ID)
	})

	t.Run("returns ErrNotFound for missing transfer", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("persists scan state across saves", func(t *testing.T) {
		tr := newPersistedTransfer(t, repo)
		require.NoError(t, tr.RecordScan(tr.Items[0].ID, "SN-0001"))
		require.NoError(t, repo.Save(ctx, tr))

		found, err := repo.FindByID(ctx, tr.ID)
		require.NoError(t, err)

		var scanned *transfer.TransferItem
		for i := range found.Items {
			if found.Items[i].SerialNumber != nil {
				scanned = &found.Items[i]
			}
		}
		require.NotNil(t, scanned)
		assert.Equal(t, "SN-0001", *scanned.SerialNumber)
		assert.Equal(t, transfer.CompletionStatusCompleted, scanned.CompletionStatus)
	})

	t.Run("removes lines dropped from the aggregate", func(t *testing.T) {
		tr := newPersistedTransfer(t, repo)
		require.NoError(t, tr.RemoveLine(tr.Items[0].ID))
		require.NoError(t, repo.Save(ctx, tr))

		found, err := repo.FindByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Len(t, found.Items, 1)

		var orphans int64
		require.NoError(t, db.Model(&models.TransferItemModel{}).
			Where("transfer_id = ?", tr.ID).Count(&orphans).Error)
		assert.EqualValues(t, 1, orphans)
	})
}

func TestGormTransferRepository_FindAll(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRepository(db)
	ctx := context.Background()

	first := newPersistedTransfer(t, repo)
	second := newPersistedTransfer(t, repo)
	require.NoError(t, second.SubmitForQC(true))
	require.NoError(t, repo.Save(ctx, second))

	t.Run("filters by status", func(t *testing.T) {
		status := transfer.TransferStatusPendingQC
		found, err := repo.FindAll(ctx, transfer.TransferFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, second.ID, found[0].ID)
	})

	t.Run("searches by transfer number", func(t *testing.T) {
		found, err := repo.FindAll(ctx, transfer.TransferFilter{
			Filter: shared.Filter{Search: first.TransferNumber},
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, first.ID, found[0].ID)
	})

	t.Run("counts matching transfers", func(t *testing.T) {
		count, err := repo.Count(ctx, transfer.TransferFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		status := transfer.TransferStatusDraft
		count, err = repo.Count(ctx, transfer.TransferFilter{Status: &status})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("paginates results", func(t *testing.T) {
		found, err := repo.FindAll(ctx, transfer.TransferFilter{
			Filter: shared.Filter{Page: 1, PageSize: 1},
		})
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}

func TestGormTransferRepository_OptimisticLocking(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRepository(db)
	ctx := context.Background()

	tr := newPersistedTransfer(t, repo)

	first, err := repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)

	flags := transfer.ItemMasterFlags{SerialManaged: boolPtr(false), BatchManaged: boolPtr(false)}
	_, err = first.AddLines("WIDGET-002", "Widget B", "pcs", flags, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	// the stale writer must be rejected, not silently applied
	require.NoError(t, second.RecordScan(second.Items[0].ID, "SN-0001"))
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// the winner's line survives the losing save attempt
	found, err := repo.FindByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, found.Items, 3)
	assert.Equal(t, first.Version, found.Version)
}

func TestGormTransferRepository_DuplicateTransferNumber(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRepository(db)
	ctx := context.Background()

	first, err := transfer.NewTransfer("WT-20260314-0001", "WH01", "WH02", uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := transfer.NewTransfer("WT-20260314-0001", "WH01", "WH02", uuid.New())
	require.NoError(t, err)
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormTransferRepository_Delete(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRepository(db)
	ctx := context.Background()

	t.Run("deletes transfer and cascades to lines", func(t *testing.T) {
		tr := newPersistedTransfer(t, repo)

		require.NoError(t, repo.Delete(ctx, tr.ID))

		_, err := repo.FindByID(ctx, tr.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var orphans int64
		require.NoError(t, db.Model(&models.TransferItemModel{}).
			Where("transfer_id = ?", tr.ID).Count(&orphans).Error)
		assert.Zero(t, orphans)
	})

	t.Run("returns ErrNotFound for missing transfer", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTransferRepository_NextTransferNumber(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	number, err := repo.NextTransferNumber(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "WT-20260314-0001", number)

	// number is only reserved once a transfer is saved with it
	tr, err := transfer.NewTransfer(number, "WH01", "WH02", uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, tr))

	number, err = repo.NextTransferNumber(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "WT-20260314-0002", number)

	// a new day restarts the sequence
	number, err = repo.NextTransferNumber(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "WT-20260315-0001", number)
}
