// Package sap defines the contracts the reconciliation engine consumes from
// the external ERP (SAP Business One). Implementations live in
// infrastructure; the engine only sees pass/fail results and document
// references, never the wire protocol.
package sap

import (
	"context"

	"github.com/shopspring/decimal"
)

// ValidationResult is the per-line outcome of an existence / stock check.
// A failed validation is an expected operational outcome, carried as data.
type ValidationResult struct {
	Valid   bool
	Message string
}

// PostResult is the outcome of a stock-transfer posting attempt
type PostResult struct {
	Success        bool
	DocumentNumber string
	ErrorMessage   string
}

// ItemMasterData is the slice of item master attributes the classifier needs
type ItemMasterData struct {
	ItemCode      string
	Description   string
	UnitOfMeasure string
	SerialManaged bool
	BatchManaged  bool
	InStock       decimal.Decimal
}

// StockTransferLine is one line of an outbound stock transfer document
type StockTransferLine struct {
	ItemCode      string
	Quantity      decimal.Decimal
	FromWarehouse string
	ToWarehouse   string
	SerialNumbers []string
}

// StockTransferDocument is the ERP-facing shape of an approved transfer
type StockTransferDocument struct {
	Reference     string
	FromWarehouse string
	ToWarehouse   string
	Comments      string
	Lines         []StockTransferLine
}

// ItemMasterGateway looks up item master data for classification
type ItemMasterGateway interface {
	// GetItemMaster fetches the master data for an item code
	GetItemMaster(ctx context.Context, itemCode string) (*ItemMasterData, error)
}

// SerialValidator checks item codes and serial numbers against the ERP.
// Calls are network-bound; cancellation and timeouts are the implementation's
// responsibility and a timeout surfaces as a failed result.
type SerialValidator interface {
	// ValidateSerial checks that a serial number exists and is in stock in the
	// given warehouse
	ValidateSerial(ctx context.Context, itemCode, serialNumber, warehouseCode string) ValidationResult

	// ValidateItem checks that an item code exists and has stock available in
	// the given warehouse
	ValidateItem(ctx context.Context, itemCode, warehouseCode string) ValidationResult
}

// DocumentPoster submits an approved transfer to the ERP. A posting attempt
// either succeeds with a document number or fails atomically for the whole
// document.
type DocumentPoster interface {
	// PostStockTransfer creates a stock transfer document in the ERP
	PostStockTransfer(ctx context.Context, doc *StockTransferDocument) PostResult
}
