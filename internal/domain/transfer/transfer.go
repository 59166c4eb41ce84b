package transfer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// TransferStatus represents the lifecycle state of a warehouse transfer
type TransferStatus string

const (
	TransferStatusDraft     TransferStatus = "draft"
	TransferStatusPendingQC TransferStatus = "pending_qc"
	TransferStatusApproved  TransferStatus = "approved"
	TransferStatusRejected  TransferStatus = "rejected"
	TransferStatusPosted    TransferStatus = "posted"
	TransferStatusFailed    TransferStatus = "failed"
)

// IsValid checks if the status is a valid TransferStatus
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusDraft, TransferStatusPendingQC, TransferStatusApproved,
		TransferStatusRejected, TransferStatusPosted, TransferStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of TransferStatus
func (s TransferStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// failed → approved is the posting-retry path; rejected and posted are
// terminal for the automated flow.
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	switch s {
	case TransferStatusDraft:
		return target == TransferStatusPendingQC
	case TransferStatusPendingQC:
		return target == TransferStatusApproved || target == TransferStatusRejected
	case TransferStatusApproved:
		return target == TransferStatusPosted || target == TransferStatusFailed
	case TransferStatusFailed:
		return target == TransferStatusApproved
	case TransferStatusRejected, TransferStatusPosted:
		return false
	}
	return false
}

// Transfer represents a stock movement request between two warehouses.
// It is the aggregate root for the reconciliation workflow: lines are scanned
// against the manifest while the transfer is in draft, a QC approver gates the
// release, and an approved transfer is posted to the external ERP exactly once.
type Transfer struct {
	shared.BaseAggregateRoot
	TransferNumber    string
	FromWarehouse     string
	ToWarehouse       string
	Status            TransferStatus
	CreatedByID       uuid.UUID
	QCApproverID      *uuid.UUID
	QCApprovedAt      *time.Time
	QCNote            string
	SapDocumentNumber *string
	PostingError      string
	Remark            string
	Items             []TransferItem
}

// NewTransfer creates a new transfer in draft status
func NewTransfer(transferNumber, fromWarehouse, toWarehouse string, createdByID uuid.UUID) (*Transfer, error) {
	if transferNumber == "" {
		return nil, shared.NewDomainError("INVALID_TRANSFER_NUMBER", "Transfer number cannot be empty")
	}
	if fromWarehouse == "" || toWarehouse == "" {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Source and destination warehouses are required")
	}
	if fromWarehouse == toWarehouse {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Source and destination warehouses must differ")
	}
	if createdByID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CREATOR", "Creator ID cannot be empty")
	}

	t := &Transfer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TransferNumber:    transferNumber,
		FromWarehouse:     fromWarehouse,
		ToWarehouse:       toWarehouse,
		Status:            TransferStatusDraft,
		CreatedByID:       createdByID,
		Items:             make([]TransferItem, 0),
	}

	t.AddDomainEvent(NewTransferCreatedEvent(t))

	return t, nil
}

// AddLines classifies the requested item and appends the resulting lines.
// A serial-managed request for N units produces N single-unit lines sharing a
// line group ID, so the grouper can present them as one logical row. Returns
// the IDs of the created lines.
func (t *Transfer) AddLines(itemCode, description, unit string, flags ItemMasterFlags, requestedQty decimal.Decimal) ([]uuid.UUID, error) {
	if t.Status != TransferStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATUS", "Can only add lines in draft status")
	}
	if itemCode == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Item code cannot be empty")
	}

	classification, err := ClassifyItem(flags, requestedQty)
	if err != nil {
		return nil, err
	}

	groupID := uuid.NewString()
	ids := make([]uuid.UUID, 0, classification.LineCount)
	for n := 0; n < classification.LineCount; n++ {
		item := newTransferItem(t.ID, itemCode, description, unit, t.FromWarehouse, t.ToWarehouse, classification)
		item.LineGroupID = &groupID
		if classification.ItemType == ItemTypeSerial {
			parent := itemCode
			item.ParentItemCode = &parent
		}
		t.Items = append(t.Items, item)
		ids = append(ids, item.ID)
	}

	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferLineAddedEvent(t, itemCode, classification.ItemType, classification.LineCount))

	return ids, nil
}

// RemoveLine removes a line from the transfer
func (t *Transfer) RemoveLine(itemID uuid.UUID) error {
	if t.Status != TransferStatusDraft {
		return shared.NewDomainError("INVALID_STATUS", "Can only remove lines in draft status")
	}

	for i, item := range t.Items {
		if item.ID == itemID {
			t.Items = append(t.Items[:i], t.Items[i+1:]...)
			t.UpdatedAt = time.Now()
			t.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Line not found in transfer")
}

// RecordScan records a serial number against a line
func (t *Transfer) RecordScan(itemID uuid.UUID, serialNumber string) error {
	if t.Status != TransferStatusDraft {
		return shared.NewDomainError("INVALID_STATUS", "Can only record scans in draft status")
	}

	item := t.findItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Line not found in transfer")
	}
	if err := item.RecordScan(serialNumber); err != nil {
		return err
	}

	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferScanRecordedEvent(t, item))

	return nil
}

// RecordQuantity applies a signed quantity delta to a line
func (t *Transfer) RecordQuantity(itemID uuid.UUID, delta decimal.Decimal) error {
	if t.Status != TransferStatusDraft {
		return shared.NewDomainError("INVALID_STATUS", "Can only record quantities in draft status")
	}

	item := t.findItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Line not found in transfer")
	}
	if err := item.RecordQuantity(delta); err != nil {
		return err
	}

	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	t.AddDomainEvent(NewTransferScanRecordedEvent(t, item))

	return nil
}

// ClearScan resets a line's reconciliation state. Allowed only in draft so the
// audit trail of reviewed transfers stays intact.
func (t *Transfer) ClearScan(itemID uuid.UUID) error {
	if t.Status != TransferStatusDraft {
		return shared.NewDomainError("INVALID_STATUS", "Can only clear scans in draft status")
	}

	item := t.findItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Line not found in transfer")
	}
	item.ClearScan()

	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// ApplyValidationResult writes an external validation outcome onto a line.
// Validation may run while the transfer is in draft or already pending QC.
func (t *Transfer) ApplyValidationResult(itemID uuid.UUID, valid bool, message string) error {
	if t.Status != TransferStatusDraft && t.Status != TransferStatusPendingQC {
		return shared.NewDomainError("INVALID_STATUS", "Validation results apply only before approval")
	}

	item := t.findItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Line not found in transfer")
	}
	item.ApplyValidationResult(valid, message)

	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetItemQCStatus records a per-line QC verdict during review
func (t *Transfer) SetItemQCStatus(itemID uuid.UUID, status ReviewStatus) error {
	if t.Status != TransferStatusPendingQC {
		return shared.NewDomainError("INVALID_STATUS", "QC verdicts can only be recorded in pending_qc status")
	}

	item := t.findItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Line not found in transfer")
	}
	return item.SetQCStatus(status)
}

// BlockingItemCodes returns the item codes that currently block submission:
// lines not yet completed or with a failed external validation. Duplicate
// codes are collapsed.
func (t *Transfer) BlockingItemCodes() []string {
	seen := make(map[string]bool)
	codes := make([]string, 0)
	for _, item := range t.Items {
		if item.IsCompleted() && item.ValidationStatus != ReviewStatusFailed {
			continue
		}
		if !seen[item.ItemCode] {
			seen[item.ItemCode] = true
			codes = append(codes, item.ItemCode)
		}
	}
	return codes
}

// SubmitForQC transitions the transfer from draft to pending_qc. Every line
// must be completed with no failed validation; force bypasses the guard for
// manual exception handling and is recorded on the submission event.
func (t *Transfer) SubmitForQC(force bool) error {
	if !t.Status.CanTransitionTo(TransferStatusPendingQC) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition from %s to pending_qc", t.Status))
	}
	if len(t.Items) == 0 {
		return shared.NewDomainError("INCOMPLETE_TRANSFER", "Cannot submit a transfer with no lines")
	}

	blocking := t.BlockingItemCodes()
	if len(blocking) > 0 && !force {
		return shared.NewDomainError("INCOMPLETE_TRANSFER",
			"Lines not ready for QC: "+strings.Join(blocking, ", "))
	}

	t.Status = TransferStatusPendingQC
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferSubmittedEvent(t, force, blocking))

	return nil
}

// Approve releases the transfer for posting
func (t *Transfer) Approve(approverID uuid.UUID, note string) error {
	if !t.Status.CanTransitionTo(TransferStatusApproved) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition from %s to approved", t.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}

	now := time.Now()
	t.Status = TransferStatusApproved
	t.QCApproverID = &approverID
	t.QCApprovedAt = &now
	t.QCNote = note
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferApprovedEvent(t))

	return nil
}

// Reject terminates the transfer at QC review
func (t *Transfer) Reject(approverID uuid.UUID, reason string) error {
	if !t.Status.CanTransitionTo(TransferStatusRejected) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition from %s to rejected", t.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}

	now := time.Now()
	t.Status = TransferStatusRejected
	t.QCApproverID = &approverID
	t.QCApprovedAt = &now
	t.QCNote = reason
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferRejectedEvent(t))

	return nil
}

// MarkPosted records a successful ERP post. The document number and the
// status change belong to the same unit of work so a retry can never create a
// duplicate external document.
func (t *Transfer) MarkPosted(documentNumber string) error {
	if !t.Status.CanTransitionTo(TransferStatusPosted) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition from %s to posted", t.Status))
	}
	if documentNumber == "" {
		return shared.NewDomainError("INVALID_INPUT", "Document number cannot be empty")
	}

	t.Status = TransferStatusPosted
	t.SapDocumentNumber = &documentNumber
	t.PostingError = ""
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferPostedEvent(t))

	return nil
}

// MarkPostingFailed parks the transfer in failed with the ERP error retained.
// The transfer stays retryable via RetryPosting.
func (t *Transfer) MarkPostingFailed(errorMessage string) error {
	if !t.Status.CanTransitionTo(TransferStatusFailed) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition from %s to failed", t.Status))
	}

	t.Status = TransferStatusFailed
	t.PostingError = errorMessage
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferPostingFailedEvent(t))

	return nil
}

// RetryPosting moves a failed transfer back to approved so posting can be
// re-attempted without re-running QC
func (t *Transfer) RetryPosting() error {
	if !t.Status.CanTransitionTo(TransferStatusApproved) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot transition from %s to approved", t.Status))
	}

	t.Status = TransferStatusApproved
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// CanDelete reports whether the transfer may be deleted outright. Anything
// past draft requires an explicit rejection to preserve the audit trail.
func (t *Transfer) CanDelete() bool {
	return t.Status == TransferStatusDraft
}

// IsComplete returns true if every line satisfied its expected quantity
func (t *Transfer) IsComplete() bool {
	if len(t.Items) == 0 {
		return false
	}
	for _, item := range t.Items {
		if !item.IsCompleted() {
			return false
		}
	}
	return true
}

// CompletedLineCount returns the number of completed lines
func (t *Transfer) CompletedLineCount() int {
	count := 0
	for _, item := range t.Items {
		if item.IsCompleted() {
			count++
		}
	}
	return count
}

// GroupedView returns the read-only logical-item roll-up of the lines
func (t *Transfer) GroupedView() []LineGroup {
	return GroupLines(t.Items)
}

// SetRemark sets the free-text remark on the transfer
func (t *Transfer) SetRemark(remark string) {
	t.Remark = remark
	t.UpdatedAt = time.Now()
}

// FindItem returns the line with the given ID, or nil
func (t *Transfer) FindItem(itemID uuid.UUID) *TransferItem {
	return t.findItem(itemID)
}

func (t *Transfer) findItem(itemID uuid.UUID) *TransferItem {
	for i := range t.Items {
		if t.Items[i].ID == itemID {
			return &t.Items[i]
		}
	}
	return nil
}
