package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/transfer"
	"github.com/wms/backend/internal/infrastructure/persistence/models"
)

// GormTransferRepository implements TransferRepository using GORM
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// FindByID finds a transfer (with its lines) by ID
func (r *GormTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	var model models.TransferModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTransferNumber finds a transfer by its externally visible number
func (r *GormTransferRepository) FindByTransferNumber(ctx context.Context, transferNumber string) (*transfer.Transfer, error) {
	var model models.TransferModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("transfer_number = ?", transferNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds transfers matching the filter
func (r *GormTransferRepository) FindAll(ctx context.Context, filter transfer.TransferFilter) ([]transfer.Transfer, error) {
	var transferModels []models.TransferModel
	query := r.applyFilter(
		r.applyCriteria(r.db.WithContext(ctx).Model(&models.TransferModel{}), filter),
		filter.Filter,
	)

	if err := query.Preload("Items").Find(&transferModels).Error; err != nil {
		return nil, err
	}
	return toDomainSlice(transferModels), nil
}

// FindByStatus finds transfers with a specific status
func (r *GormTransferRepository) FindByStatus(ctx context.Context, status transfer.TransferStatus, filter shared.Filter) ([]transfer.Transfer, error) {
	var transferModels []models.TransferModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.TransferModel{}).Where("status = ?", status),
		filter,
	)

	if err := query.Preload("Items").Find(&transferModels).Error; err != nil {
		return nil, err
	}
	return toDomainSlice(transferModels), nil
}

// Count counts transfers matching the filter
func (r *GormTransferRepository) Count(ctx context.Context, filter transfer.TransferFilter) (int64, error) {
	var count int64
	query := r.applyCriteria(r.db.WithContext(ctx).Model(&models.TransferModel{}), filter)
	if filter.Search != "" {
		query = applySearch(query, filter.Search)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a transfer and its lines in one transaction.
// Updates carry an optimistic version check so a stale writer cannot
// overwrite a concurrent modification or delete its lines.
func (r *GormTransferRepository) Save(ctx context.Context, t *transfer.Transfer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.TransferModelFromDomain(t)

		var existing int64
		if err := tx.Model(&models.TransferModel{}).
			Where("id = ?", t.ID).
			Count(&existing).Error; err != nil {
			return err
		}

		if existing == 0 {
			if err := tx.Omit("Items").Create(model).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.ErrAlreadyExists
				}
				return err
			}
		} else {
			result := tx.Model(&models.TransferModel{}).
				Where("id = ? AND version = ?", t.ID, t.Version-1).
				Select("*").
				Omit("id", "created_at", "Items").
				Updates(model)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
		}

		// Delete lines that were removed from the aggregate
		keptIDs := make([]uuid.UUID, 0, len(t.Items))
		for _, item := range t.Items {
			keptIDs = append(keptIDs, item.ID)
		}
		if len(keptIDs) > 0 {
			if err := tx.Where("transfer_id = ? AND id NOT IN ?", t.ID, keptIDs).
				Delete(&models.TransferItemModel{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("transfer_id = ?", t.ID).
				Delete(&models.TransferItemModel{}).Error; err != nil {
				return err
			}
		}

		for i := range t.Items {
			t.Items[i].TransferID = t.ID
			itemModel := models.TransferItemModelFromDomain(&t.Items[i])
			if err := tx.Save(itemModel).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a transfer and cascades to its lines
func (r *GormTransferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transfer_id = ?", id).Delete(&models.TransferItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.TransferModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// NextTransferNumber reserves the next transfer number for the given day.
// Format: WT-YYYYMMDD-NNNN
func (r *GormTransferRepository) NextTransferNumber(ctx context.Context, day time.Time) (string, error) {
	prefix := fmt.Sprintf("WT-%s-", day.Format("20060102"))

	var maxNumber string
	err := r.db.WithContext(ctx).Model(&models.TransferModel{}).
		Select("transfer_number").
		Where("transfer_number LIKE ?", prefix+"%").
		Order("transfer_number DESC").
		Limit(1).
		Pluck("transfer_number", &maxNumber).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	seq := 0
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) >= 3 {
			if _, err := fmt.Sscanf(parts[len(parts)-1], "%04d", &seq); err != nil {
				seq = 0
			}
		}
	}
	seq++

	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// applyCriteria applies transfer-specific filter criteria to a query
func (r *GormTransferRepository) applyCriteria(query *gorm.DB, filter transfer.TransferFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromWarehouse != "" {
		query = query.Where("from_warehouse = ?", filter.FromWarehouse)
	}
	if filter.ToWarehouse != "" {
		query = query.Where("to_warehouse = ?", filter.ToWarehouse)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}
	return query
}

// applyFilter applies common search, pagination and ordering options
func (r *GormTransferRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = applySearch(query, filter.Search)
	}

	query = query.Offset(filter.Offset()).Limit(filter.Limit())

	orderBy := "created_at"
	if filter.OrderBy != "" {
		// Whitelist order by fields to prevent SQL injection
		validFields := map[string]bool{
			"transfer_number": true,
			"from_warehouse":  true,
			"to_warehouse":    true,
			"status":          true,
			"created_at":      true,
			"updated_at":      true,
		}
		if validFields[filter.OrderBy] {
			orderBy = filter.OrderBy
		}
	}

	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}

	return query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))
}

func applySearch(query *gorm.DB, search string) *gorm.DB {
	pattern := "%" + strings.ToLower(search) + "%"
	return query.Where("LOWER(transfer_number) LIKE ? OR LOWER(from_warehouse) LIKE ? OR LOWER(to_warehouse) LIKE ?",
		pattern, pattern, pattern)
}

func toDomainSlice(transferModels []models.TransferModel) []transfer.Transfer {
	transfers := make([]transfer.Transfer, len(transferModels))
	for i, model := range transferModels {
		transfers[i] = *model.ToDomain()
	}
	return transfers
}

// Ensure GormTransferRepository implements TransferRepository
var _ transfer.TransferRepository = (*GormTransferRepository)(nil)
