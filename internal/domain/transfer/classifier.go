package transfer

import (
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/shared"
)

// ItemType distinguishes serial-managed lines from quantity-managed lines.
// It is decided once, at line creation, and never changes afterwards.
type ItemType string

const (
	ItemTypeSerial    ItemType = "serial"
	ItemTypeNonSerial ItemType = "non_serial"
)

// IsValid checks if the item type is a known value
func (t ItemType) IsValid() bool {
	return t == ItemTypeSerial || t == ItemTypeNonSerial
}

// String returns the string representation of ItemType
func (t ItemType) String() string {
	return string(t)
}

// ItemMasterFlags carries the managed-inventory attributes from item master data.
// A nil pointer means the attribute was not supplied by the caller; when at least
// one flag is present, a missing flag defaults to false.
type ItemMasterFlags struct {
	SerialManaged *bool
	BatchManaged  *bool
}

// Known reports whether any classification attribute was supplied
func (f ItemMasterFlags) Known() bool {
	return f.SerialManaged != nil || f.BatchManaged != nil
}

// IsSerialManaged returns the serial-managed flag, defaulting to false
func (f ItemMasterFlags) IsSerialManaged() bool {
	return f.SerialManaged != nil && *f.SerialManaged
}

// IsBatchManaged returns the batch-managed flag, defaulting to false
func (f ItemMasterFlags) IsBatchManaged() bool {
	return f.BatchManaged != nil && *f.BatchManaged
}

// LineClassification is the result of classifying a requested item: how many
// physical lines to create and the initial reconciliation state of each line.
type LineClassification struct {
	ItemType         ItemType
	LineCount        int
	ExpectedQuantity decimal.Decimal
	ScannedQuantity  decimal.Decimal
	CompletionStatus CompletionStatus
	IsSerialManaged  bool
	IsBatchManaged   bool
}

// ClassifyItem decides how a requested item maps onto transfer lines.
//
// Serial-managed items produce one line per unit (expected quantity 1 each),
// so the requested quantity must be a positive whole number. Quantity-managed
// items produce a single line carrying the full requested quantity; the line
// is auto-completed at creation and stays editable until the transfer leaves
// draft.
func ClassifyItem(flags ItemMasterFlags, requestedQty decimal.Decimal) (LineClassification, error) {
	if !flags.Known() {
		return LineClassification{}, shared.NewDomainError("UNKNOWN_ITEM_CLASSIFICATION",
			"Item master flags are required to classify an item")
	}
	if requestedQty.LessThanOrEqual(decimal.Zero) {
		return LineClassification{}, shared.NewDomainError("INVALID_QUANTITY",
			"Requested quantity must be greater than zero")
	}

	if flags.IsSerialManaged() {
		if !requestedQty.IsInteger() {
			return LineClassification{}, shared.NewDomainError("INVALID_QUANTITY",
				"Serial-managed items require a whole-number quantity")
		}
		return LineClassification{
			ItemType:         ItemTypeSerial,
			LineCount:        int(requestedQty.IntPart()),
			ExpectedQuantity: decimal.NewFromInt(1),
			ScannedQuantity:  decimal.Zero,
			CompletionStatus: CompletionStatusPending,
			IsSerialManaged:  true,
			IsBatchManaged:   flags.IsBatchManaged(),
		}, nil
	}

	return LineClassification{
		ItemType:         ItemTypeNonSerial,
		LineCount:        1,
		ExpectedQuantity: requestedQty,
		ScannedQuantity:  requestedQty,
		CompletionStatus: CompletionStatusCompleted,
		IsSerialManaged:  false,
		IsBatchManaged:   flags.IsBatchManaged(),
	}, nil
}
