package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// CompletionStatus is the derived reconciliation state of a transfer line
type CompletionStatus string

const (
	CompletionStatusPending   CompletionStatus = "pending"
	CompletionStatusPartial   CompletionStatus = "partial"
	CompletionStatusCompleted CompletionStatus = "completed"
)

// String returns the string representation of CompletionStatus
func (s CompletionStatus) String() string {
	return string(s)
}

// ReviewStatus is shared by the QC and external-validation axes of a line.
// The two axes are independent: QC review never touches validation state and
// vice versa.
type ReviewStatus string

const (
	ReviewStatusPending ReviewStatus = "pending"
	ReviewStatusPassed  ReviewStatus = "passed"
	ReviewStatusFailed  ReviewStatus = "failed"
)

// String returns the string representation of ReviewStatus
func (s ReviewStatus) String() string {
	return string(s)
}

// TransferItem represents one manifest line within a transfer: either a single
// physical serial unit or one quantity-managed batch entry.
type TransferItem struct {
	ID               uuid.UUID
	TransferID       uuid.UUID
	ItemCode         string
	Description      string
	UnitOfMeasure    string
	FromWarehouse    string
	ToWarehouse      string
	ItemType         ItemType
	IsSerialManaged  bool
	IsBatchManaged   bool
	SerialNumber     *string
	ExpectedQuantity decimal.Decimal
	ScannedQuantity  decimal.Decimal
	CompletionStatus CompletionStatus
	ParentItemCode   *string
	LineGroupID      *string
	QCStatus         ReviewStatus
	ValidationStatus ReviewStatus
	ValidationError  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// newTransferItem creates a line from a classification result. The transfer
// aggregate is the only caller; lines never exist outside a transfer.
func newTransferItem(transferID uuid.UUID, itemCode, description, unit, fromWhs, toWhs string, c LineClassification) TransferItem {
	now := time.Now()
	return TransferItem{
		ID:               uuid.New(),
		TransferID:       transferID,
		ItemCode:         itemCode,
		Description:      description,
		UnitOfMeasure:    unit,
		FromWarehouse:    fromWhs,
		ToWarehouse:      toWhs,
		ItemType:         c.ItemType,
		IsSerialManaged:  c.IsSerialManaged,
		IsBatchManaged:   c.IsBatchManaged,
		ExpectedQuantity: c.ExpectedQuantity,
		ScannedQuantity:  c.ScannedQuantity,
		CompletionStatus: c.CompletionStatus,
		QCStatus:         ReviewStatusPending,
		ValidationStatus: ReviewStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RecordScan assigns a serial number to a serial-managed line and marks it
// completed. Re-scanning an already scanned line fails; the caller must clear
// the scan first.
func (i *TransferItem) RecordScan(serialNumber string) error {
	if i.ItemType != ItemTypeSerial {
		return shared.NewDomainError("INVALID_ITEM_TYPE", "Serial scans apply only to serial-managed lines")
	}
	if serialNumber == "" {
		return shared.NewDomainError("INVALID_INPUT", "Serial number cannot be empty")
	}
	if i.SerialNumber != nil {
		return shared.NewDomainError("ALREADY_SCANNED", "Line already has a serial number; clear the scan first")
	}

	i.SerialNumber = &serialNumber
	i.ScannedQuantity = decimal.NewFromInt(1)
	i.CompletionStatus = CompletionStatusCompleted
	i.UpdatedAt = time.Now()

	return nil
}

// RecordQuantity applies a signed delta to a quantity-managed line. The
// scanned quantity never drops below zero; a delta that would push it past
// the expected quantity is rejected without changing the line.
func (i *TransferItem) RecordQuantity(delta decimal.Decimal) error {
	if i.ItemType != ItemTypeNonSerial {
		return shared.NewDomainError("INVALID_ITEM_TYPE", "Quantity deltas apply only to quantity-managed lines")
	}

	next := i.ScannedQuantity.Add(delta)
	if next.GreaterThan(i.ExpectedQuantity) {
		return shared.NewDomainError("QUANTITY_EXCEEDS_AVAILABLE",
			"Scanned quantity cannot exceed expected quantity "+i.ExpectedQuantity.String())
	}
	if next.IsNegative() {
		next = decimal.Zero
	}

	i.ScannedQuantity = next
	i.recomputeCompletion()
	i.UpdatedAt = time.Now()

	return nil
}

// ClearScan resets the line's reconciliation state back to pending. Serial
// lines lose their serial number; quantity lines drop to zero scanned.
func (i *TransferItem) ClearScan() {
	i.SerialNumber = nil
	i.ScannedQuantity = decimal.Zero
	i.CompletionStatus = CompletionStatusPending
	i.UpdatedAt = time.Now()
}

// ApplyValidationResult records the outcome of an external validation call.
// Results are data, not errors: a failed validation parks the line in a
// visible failed state without raising.
func (i *TransferItem) ApplyValidationResult(valid bool, message string) {
	if valid {
		i.ValidationStatus = ReviewStatusPassed
		i.ValidationError = ""
	} else {
		i.ValidationStatus = ReviewStatusFailed
		i.ValidationError = message
	}
	i.UpdatedAt = time.Now()
}

// SetQCStatus records the QC reviewer's per-line verdict
func (i *TransferItem) SetQCStatus(status ReviewStatus) error {
	if status != ReviewStatusPassed && status != ReviewStatusFailed && status != ReviewStatusPending {
		return shared.NewDomainError("INVALID_INPUT", "Unknown QC status "+string(status))
	}
	i.QCStatus = status
	i.UpdatedAt = time.Now()
	return nil
}

// IsCompleted returns true if the line satisfied its expected quantity
func (i *TransferItem) IsCompleted() bool {
	return i.CompletionStatus == CompletionStatusCompleted
}

// recomputeCompletion derives the completion status from the scanned quantity
func (i *TransferItem) recomputeCompletion() {
	switch {
	case i.ScannedQuantity.GreaterThanOrEqual(i.ExpectedQuantity):
		i.CompletionStatus = CompletionStatusCompleted
	case i.ScannedQuantity.IsPositive():
		i.CompletionStatus = CompletionStatusPartial
	default:
		i.CompletionStatus = CompletionStatusPending
	}
}

// groupKey returns the key the line grouper clusters this line under
func (i *TransferItem) groupKey() string {
	if i.LineGroupID != nil && *i.LineGroupID != "" {
		return *i.LineGroupID
	}
	if i.ParentItemCode != nil && *i.ParentItemCode != "" {
		return *i.ParentItemCode + "/" + i.ItemCode
	}
	return i.ItemCode
}
