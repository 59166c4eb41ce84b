package transfer

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// Aggregate type constant for Transfer
const AggregateTypeTransfer = "Transfer"

// Transfer event type constants
const (
	EventTypeTransferCreated       = "TransferCreated"
	EventTypeTransferLineAdded     = "TransferLineAdded"
	EventTypeTransferScanRecorded  = "TransferScanRecorded"
	EventTypeTransferSubmitted     = "TransferSubmitted"
	EventTypeTransferApproved      = "TransferApproved"
	EventTypeTransferRejected      = "TransferRejected"
	EventTypeTransferPosted        = "TransferPosted"
	EventTypeTransferPostingFailed = "TransferPostingFailed"
)

// TransferCreatedEvent is raised when a transfer is created
type TransferCreatedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	FromWarehouse  string    `json:"from_warehouse"`
	ToWarehouse    string    `json:"to_warehouse"`
	CreatedByID    uuid.UUID `json:"created_by_id"`
}

// NewTransferCreatedEvent creates a new TransferCreatedEvent
func NewTransferCreatedEvent(t *Transfer) *TransferCreatedEvent {
	return &TransferCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferCreated, AggregateTypeTransfer, t.ID),
		TransferID:      t.ID,
		TransferNumber:  t.TransferNumber,
		FromWarehouse:   t.FromWarehouse,
		ToWarehouse:     t.ToWarehouse,
		CreatedByID:     t.CreatedByID,
	}
}

// EventType returns the event type name
func (e *TransferCreatedEvent) EventType() string {
	return EventTypeTransferCreated
}

// TransferLineAddedEvent is raised when lines are added to a transfer
type TransferLineAddedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	ItemCode       string    `json:"item_code"`
	ItemType       ItemType  `json:"item_type"`
	LineCount      int       `json:"line_count"`
}

// NewTransferLineAddedEvent creates a new TransferLineAddedEvent
func NewTransferLineAddedEvent(t *Transfer, itemCode string, itemType ItemType, lineCount int) *TransferLineAddedEvent {
	return &TransferLineAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferLineAdded, AggregateTypeTransfer, t.ID),
		TransferID:      t.ID,
		TransferNumber:  t.TransferNumber,
		ItemCode:        itemCode,
		ItemType:        itemType,
		LineCount:       lineCount,
	}
}

// EventType returns the event type name
func (e *TransferLineAddedEvent) EventType() string {
	return EventTypeTransferLineAdded
}

// TransferScanRecordedEvent is raised when a scan or quantity confirmation
// changes a line's reconciliation state
type TransferScanRecordedEvent struct {
	shared.BaseDomainEvent
	TransferID       uuid.UUID        `json:"transfer_id"`
	ItemID           uuid.UUID        `json:"item_id"`
	ItemCode         string           `json:"item_code"`
	SerialNumber     *string          `json:"serial_number,omitempty"`
	ScannedQuantity  decimal.Decimal  `json:"scanned_quantity"`
	CompletionStatus CompletionStatus `json:"completion_status"`
}

// NewTransferScanRecordedEvent creates a new TransferScanRecordedEvent
func NewTransferScanRecordedEvent(t *Transfer, item *TransferItem) *TransferScanRecordedEvent {
	return &TransferScanRecordedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTransferScanRecorded, AggregateTypeTransfer, t.ID),
		TransferID:       t.ID,
		ItemID:           item.ID,
		ItemCode:         item.ItemCode,
		SerialNumber:     item.SerialNumber,
		ScannedQuantity:  item.ScannedQuantity,
		CompletionStatus: item.CompletionStatus,
	}
}

// EventType returns the event type name
func (e *TransferScanRecordedEvent) EventType() string {
	return EventTypeTransferScanRecorded
}

// TransferSubmittedEvent is raised when a transfer enters QC review.
// Forced carries whether the completion guard was overridden, together with
// the item codes that were still blocking at submission time.
type TransferSubmittedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	Forced         bool      `json:"forced"`
	BlockingCodes  []string  `json:"blocking_codes,omitempty"`
}

// NewTransferSubmittedEvent creates a new TransferSubmittedEvent
func NewTransferSubmittedEvent(t *Transfer, forced bool, blockingCodes []string) *TransferSubmittedEvent {
	return &TransferSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferSubmitted, AggregateTypeTransfer, t.ID),
		TransferID:      t.ID,
		TransferNumber:  t.TransferNumber,
		Forced:          forced,
		BlockingCodes:   blockingCodes,
	}
}

// EventType returns the event type name
func (e *TransferSubmittedEvent) EventType() string {
	return EventTypeTransferSubmitted
}

// TransferApprovedEvent is raised when QC approves a transfer
type TransferApprovedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	ApproverID     uuid.UUID `json:"approver_id"`
}

// NewTransferApprovedEvent creates a new TransferApprovedEvent
func NewTransferApprovedEvent(t *Transfer) *TransferApprovedEvent {
	var approverID uuid.UUID
	if t.QCApproverID != nil {
		approverID = *t.QCApproverID
	}
	return &TransferApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferApproved, AggregateTypeTransfer, t.ID),
		TransferID:      t.ID,
		TransferNumber:  t.TransferNumber,
		ApproverID:      approverID,
	}
}

// EventType returns the event type name
func (e *TransferApprovedEvent) EventType() string {
	return EventTypeTransferApproved
}

// TransferRejectedEvent is raised when QC rejects a transfer
type TransferRejectedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	RejectedByID   uuid.UUID `json:"rejected_by_id"`
	Reason         string    `json:"reason"`
}

// NewTransferRejectedEvent creates a new TransferRejectedEvent
func NewTransferRejectedEvent(t *Transfer) *TransferRejectedEvent {
	var rejectedByID uuid.UUID
	if t.QCApproverID != nil {
		rejectedByID = *t.QCApproverID
	}
	return &TransferRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferRejected, AggregateTypeTransfer, t.ID),
		TransferID:      t.ID,
		TransferNumber:  t.TransferNumber,
		RejectedByID:    rejectedByID,
		Reason:          t.QCNote,
	}
}

// EventType returns the event type name
func (e *TransferRejectedEvent) EventType() string {
	return EventTypeTransferRejected
}

// TransferPostedEvent is raised when a transfer is successfully posted to the
// external ERP
type TransferPostedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	DocumentNumber string    `json:"document_number"`
}

// NewTransferPostedEvent creates a new TransferPostedEvent
func NewTransferPostedEvent(t *Transfer) *TransferPostedEvent {
	var doc string
	if t.SapDocumentNumber != nil {
		doc = *t.SapDocumentNumber
	}
	return &TransferPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferPosted, AggregateTypeTransfer, t.ID),
		TransferID:      t.ID,
		TransferNumber:  t.TransferNumber,
		DocumentNumber:  doc,
	}
}

// EventType returns the event type name
func (e *TransferPostedEvent) EventType() string {
	return EventTypeTransferPosted
}

// TransferPostingFailedEvent is raised when an ERP post attempt fails
type TransferPostingFailedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	TransferNumber string    `json:"transfer_number"`
	Error          string    `json:"error"`
}

// NewTransferPostingFailedEvent creates a new TransferPostingFailedEvent
func NewTransferPostingFailedEvent(t *Transfer) *TransferPostingFailedEvent {
	return &TransferPostingFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferPostingFailed, AggregateTypeTransfer, t.ID),
		TransferID:      t.ID,
		TransferNumber:  t.TransferNumber,
		Error:           t.PostingError,
	}
}

// EventType returns the event type name
func (e *TransferPostingFailedEvent) EventType() string {
	return EventTypeTransferPostingFailed
}
