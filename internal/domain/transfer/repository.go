package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/shared"
)

// TransferFilter extends the common filter with transfer-specific criteria
type TransferFilter struct {
	shared.Filter
	Status        *TransferStatus
	FromWarehouse string
	ToWarehouse   string
	CreatedByID   *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
}

// TransferRepository defines the interface for transfer persistence
type TransferRepository interface {
	// FindByID finds a transfer (with its lines) by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// FindByTransferNumber finds a transfer by its externally visible number
	FindByTransferNumber(ctx context.Context, transferNumber string) (*Transfer, error)

	// FindAll finds transfers matching the filter
	FindAll(ctx context.Context, filter TransferFilter) ([]Transfer, error)

	// FindByStatus finds transfers with a specific status
	FindByStatus(ctx context.Context, status TransferStatus, filter shared.Filter) ([]Transfer, error)

	// Count counts transfers matching the filter
	Count(ctx context.Context, filter TransferFilter) (int64, error)

	// Save creates or updates a transfer and its lines atomically
	Save(ctx context.Context, t *Transfer) error

	// Delete deletes a draft transfer and cascades to its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// NextTransferNumber reserves the next transfer number for the given day
	NextTransferNumber(ctx context.Context, day time.Time) (string, error)
}
