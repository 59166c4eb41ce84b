package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/transfer"
)

// CreateTransferRequest is the input for creating a transfer
type CreateTransferRequest struct {
	FromWarehouse string
	ToWarehouse   string
	Remark        string
	CreatedByID   uuid.UUID
}

// AddLineRequest is the input for adding a logical item to a transfer.
// Item master flags are looked up from the ERP unless supplied explicitly.
type AddLineRequest struct {
	ItemCode      string
	Description   string
	UnitOfMeasure string
	Quantity      decimal.Decimal
	SerialManaged *bool
	BatchManaged  *bool
}

// TransitionRequest is the input for a state-machine transition
type TransitionRequest struct {
	Target     transfer.TransferStatus
	Force      bool
	ApproverID uuid.UUID
	Note       string
}

// TransferItemResponse is the API representation of one transfer line
type TransferItemResponse struct {
	ID               uuid.UUID             `json:"id"`
	ItemCode         string                `json:"item_code"`
	Description      string                `json:"description"`
	UnitOfMeasure    string                `json:"unit_of_measure"`
	ItemType         transfer.ItemType     `json:"item_type"`
	IsSerialManaged  bool                  `json:"is_serial_managed"`
	IsBatchManaged   bool                  `json:"is_batch_managed"`
	SerialNumber     *string               `json:"serial_number,omitempty"`
	ExpectedQuantity decimal.Decimal       `json:"expected_quantity"`
	ScannedQuantity  decimal.Decimal       `json:"scanned_quantity"`
	CompletionStatus string                `json:"completion_status"`
	ParentItemCode   *string               `json:"parent_item_code,omitempty"`
	LineGroupID      *string               `json:"line_group_id,omitempty"`
	QCStatus         transfer.ReviewStatus `json:"qc_status"`
	ValidationStatus transfer.ReviewStatus `json:"validation_status"`
	ValidationError  string                `json:"validation_error,omitempty"`
}

// TransferResponse is the API representation of a transfer with its lines
type TransferResponse struct {
	ID                uuid.UUID               `json:"id"`
	TransferNumber    string                  `json:"transfer_number"`
	FromWarehouse     string                  `json:"from_warehouse"`
	ToWarehouse       string                  `json:"to_warehouse"`
	Status            transfer.TransferStatus `json:"status"`
	CreatedByID       uuid.UUID               `json:"created_by_id"`
	QCApproverID      *uuid.UUID              `json:"qc_approver_id,omitempty"`
	QCApprovedAt      *time.Time              `json:"qc_approved_at,omitempty"`
	QCNote            string                  `json:"qc_note,omitempty"`
	SapDocumentNumber *string                 `json:"sap_document_number,omitempty"`
	PostingError      string                  `json:"posting_error,omitempty"`
	Remark            string                  `json:"remark,omitempty"`
	Items             []TransferItemResponse  `json:"items"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// TransferListResponse is the summary row used by list endpoints
type TransferListResponse struct {
	ID             uuid.UUID               `json:"id"`
	TransferNumber string                  `json:"transfer_number"`
	FromWarehouse  string                  `json:"from_warehouse"`
	ToWarehouse    string                  `json:"to_warehouse"`
	Status         transfer.TransferStatus `json:"status"`
	LineCount      int                     `json:"line_count"`
	CompletedLines int                     `json:"completed_lines"`
	CreatedAt      time.Time               `json:"created_at"`
}

// LineGroupResponse is the API representation of a grouped logical item
type LineGroupResponse struct {
	GroupKey         string            `json:"group_key"`
	ItemCode         string            `json:"item_code"`
	Description      string            `json:"description"`
	ItemType         transfer.ItemType `json:"item_type"`
	LineCount        int               `json:"line_count"`
	ExpectedQuantity decimal.Decimal   `json:"expected_quantity"`
	ScannedQuantity  decimal.Decimal   `json:"scanned_quantity"`
	Status           string            `json:"status"`
	MemberIDs        []uuid.UUID       `json:"member_ids"`
}

// ValidationSummary reports the outcome of validating all lines of a transfer
type ValidationSummary struct {
	TotalLines  int `json:"total_lines"`
	PassedLines int `json:"passed_lines"`
	FailedLines int `json:"failed_lines"`
}

// TransferListFilter holds list filtering options at the application boundary
type TransferListFilter struct {
	Page          int
	PageSize      int
	OrderBy       string
	OrderDir      string
	Search        string
	Status        *transfer.TransferStatus
	FromWarehouse string
	ToWarehouse   string
	CreatedByID   *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
}

// ToTransferItemResponse converts a domain line to its API representation
func ToTransferItemResponse(item transfer.TransferItem) TransferItemResponse {
	return TransferItemResponse{
		ID:               item.ID,
		ItemCode:         item.ItemCode,
		Description:      item.Description,
		UnitOfMeasure:    item.UnitOfMeasure,
		ItemType:         item.ItemType,
		IsSerialManaged:  item.IsSerialManaged,
		IsBatchManaged:   item.IsBatchManaged,
		SerialNumber:     item.SerialNumber,
		ExpectedQuantity: item.ExpectedQuantity,
		ScannedQuantity:  item.ScannedQuantity,
		CompletionStatus: item.CompletionStatus.String(),
		ParentItemCode:   item.ParentItemCode,
		LineGroupID:      item.LineGroupID,
		QCStatus:         item.QCStatus,
		ValidationStatus: item.ValidationStatus,
		ValidationError:  item.ValidationError,
	}
}

// ToTransferResponse converts a domain transfer to its API representation
func ToTransferResponse(t *transfer.Transfer) TransferResponse {
	items := make([]TransferItemResponse, len(t.Items))
	for i, item := range t.Items {
		items[i] = ToTransferItemResponse(item)
	}
	return TransferResponse{
		ID:                t.ID,
		TransferNumber:    t.TransferNumber,
		FromWarehouse:     t.FromWarehouse,
		ToWarehouse:       t.ToWarehouse,
		Status:            t.Status,
		CreatedByID:       t.CreatedByID,
		QCApproverID:      t.QCApproverID,
		QCApprovedAt:      t.QCApprovedAt,
		QCNote:            t.QCNote,
		SapDocumentNumber: t.SapDocumentNumber,
		PostingError:      t.PostingError,
		Remark:            t.Remark,
		Items:             items,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// ToTransferListResponse converts a domain transfer to its summary row
func ToTransferListResponse(t *transfer.Transfer) TransferListResponse {
	return TransferListResponse{
		ID:             t.ID,
		TransferNumber: t.TransferNumber,
		FromWarehouse:  t.FromWarehouse,
		ToWarehouse:    t.ToWarehouse,
		Status:         t.Status,
		LineCount:      len(t.Items),
		CompletedLines: t.CompletedLineCount(),
		CreatedAt:      t.CreatedAt,
	}
}

// ToLineGroupResponses converts grouped lines to their API representation
func ToLineGroupResponses(groups []transfer.LineGroup) []LineGroupResponse {
	out := make([]LineGroupResponse, len(groups))
	for i, g := range groups {
		out[i] = LineGroupResponse{
			GroupKey:         g.GroupKey,
			ItemCode:         g.ItemCode,
			Description:      g.Description,
			ItemType:         g.ItemType,
			LineCount:        g.LineCount,
			ExpectedQuantity: g.ExpectedQuantity,
			ScannedQuantity:  g.ScannedQuantity,
			Status:           g.Status.String(),
			MemberIDs:        g.MemberIDs,
		}
	}
	return out
}
