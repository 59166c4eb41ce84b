package sapb1

import "github.com/shopspring/decimal"

// loginRequest is the Service Layer /Login body
type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

// loginResponse is the Service Layer /Login response body
type loginResponse struct {
	SessionID      string `json:"SessionId"`
	SessionTimeout int    `json:"SessionTimeout"`
}

// b1Error is the Service Layer error envelope
type b1Error struct {
	Error struct {
		Code    any `json:"code"`
		Message struct {
			Value string `json:"value"`
		} `json:"message"`
	} `json:"error"`
}

// b1Item is the subset of the Items entity the classifier needs.
// Tri-state flags come back as "tYES" / "tNO".
type b1Item struct {
	ItemCode           string          `json:"ItemCode"`
	ItemName           string          `json:"ItemName"`
	InventoryUOM       string          `json:"InventoryUOM"`
	ManageSerialNumber string          `json:"ManageSerialNumbers"`
	ManageBatchNumber  string          `json:"ManageBatchNumbers"`
	QuantityOnStock    decimal.Decimal `json:"QuantityOnStock"`
}

// b1SerialDetail is one row of the SerialNumberDetails entity
type b1SerialDetail struct {
	ItemCode     string `json:"ItemCode"`
	SerialNumber string `json:"SerialNumber"`
}

// b1CollectionResponse wraps OData collection responses
type b1CollectionResponse[T any] struct {
	Value []T `json:"value"`
}

// b1StockTransferSerial is one serial entry on a stock transfer line
type b1StockTransferSerial struct {
	InternalSerialNumber string          `json:"InternalSerialNumber"`
	Quantity             decimal.Decimal `json:"Quantity"`
}

// b1StockTransferLine is one line of a StockTransfers document
type b1StockTransferLine struct {
	ItemCode          string                  `json:"ItemCode"`
	Quantity          decimal.Decimal         `json:"Quantity"`
	FromWarehouseCode string                  `json:"FromWarehouseCode"`
	WarehouseCode     string                  `json:"WarehouseCode"`
	SerialNumbers     []b1StockTransferSerial `json:"SerialNumbers,omitempty"`
}

// b1StockTransfer is the StockTransfers document body
type b1StockTransfer struct {
	Comments           string                `json:"Comments,omitempty"`
	JournalMemo        string                `json:"JournalMemo,omitempty"`
	FromWarehouse      string                `json:"FromWarehouse"`
	ToWarehouse        string                `json:"ToWarehouse"`
	StockTransferLines []b1StockTransferLine `json:"StockTransferLines"`
}

// b1StockTransferResponse is the created StockTransfers document
type b1StockTransferResponse struct {
	DocEntry int `json:"DocEntry"`
	DocNum   int `json:"DocNum"`
}

const (
	b1Yes = "tYES"
	b1No  = "tNO"
)
