package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms/backend/internal/domain/transfer"
)

// TransferModel is the persistence model for the Transfer aggregate root.
type TransferModel struct {
	AggregateModel
	TransferNumber    string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	FromWarehouse     string                  `gorm:"type:varchar(50);not null;index"`
	ToWarehouse       string                  `gorm:"type:varchar(50);not null;index"`
	Status            transfer.TransferStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	CreatedByID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	QCApproverID      *uuid.UUID              `gorm:"type:uuid"`
	QCApprovedAt      *time.Time              `gorm:""`
	QCNote            string                  `gorm:"type:varchar(500)"`
	SapDocumentNumber *string                 `gorm:"type:varchar(50)"`
	PostingError      string                  `gorm:"type:varchar(1000)"`
	Remark            string                  `gorm:"type:varchar(500)"`
	Items             []TransferItemModel     `gorm:"foreignKey:TransferID;references:ID"`
}

// TableName returns the table name for GORM
func (TransferModel) TableName() string {
	return "warehouse_transfers"
}

// ToDomain converts the persistence model to a domain Transfer aggregate.
func (m *TransferModel) ToDomain() *transfer.Transfer {
	t := &transfer.Transfer{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		TransferNumber:    m.TransferNumber,
		FromWarehouse:     m.FromWarehouse,
		ToWarehouse:       m.ToWarehouse,
		Status:            m.Status,
		CreatedByID:       m.CreatedByID,
		QCApproverID:      m.QCApproverID,
		QCApprovedAt:      m.QCApprovedAt,
		QCNote:            m.QCNote,
		SapDocumentNumber: m.SapDocumentNumber,
		PostingError:      m.PostingError,
		Remark:            m.Remark,
		Items:             make([]transfer.TransferItem, len(m.Items)),
	}
	for i, item := range m.Items {
		t.Items[i] = *item.ToDomain()
	}
	return t
}

// FromDomain populates the persistence model from a domain Transfer aggregate.
func (m *TransferModel) FromDomain(t *transfer.Transfer) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.TransferNumber = t.TransferNumber
	m.FromWarehouse = t.FromWarehouse
	m.ToWarehouse = t.ToWarehouse
	m.Status = t.Status
	m.CreatedByID = t.CreatedByID
	m.QCApproverID = t.QCApproverID
	m.QCApprovedAt = t.QCApprovedAt
	m.QCNote = t.QCNote
	m.SapDocumentNumber = t.SapDocumentNumber
	m.PostingError = t.PostingError
	m.Remark = t.Remark
	m.Items = make([]TransferItemModel, len(t.Items))
	for i := range t.Items {
		m.Items[i] = *TransferItemModelFromDomain(&t.Items[i])
	}
}

// TransferModelFromDomain creates a new persistence model from a domain Transfer aggregate.
func TransferModelFromDomain(t *transfer.Transfer) *TransferModel {
	m := &TransferModel{}
	m.FromDomain(t)
	return m
}

// TransferItemModel is the persistence model for the TransferItem entity.
type TransferItemModel struct {
	ID               uuid.UUID             `gorm:"type:uuid;primary_key"`
	TransferID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	ItemCode         string                `gorm:"type:varchar(50);not null;index"`
	Description      string                `gorm:"type:varchar(200)"`
	UnitOfMeasure    string                `gorm:"type:varchar(20)"`
	FromWarehouse    string                `gorm:"type:varchar(50);not null"`
	ToWarehouse      string                `gorm:"type:varchar(50);not null"`
	ItemType         transfer.ItemType     `gorm:"type:varchar(20);not null"`
	IsSerialManaged  bool                  `gorm:"not null;default:false"`
	IsBatchManaged   bool                  `gorm:"not null;default:false"`
	SerialNumber     *string               `gorm:"type:varchar(100)"`
	ExpectedQuantity decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	ScannedQuantity  decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	CompletionStatus string                `gorm:"type:varchar(20);not null;default:'pending'"`
	ParentItemCode   *string               `gorm:"type:varchar(50)"`
	LineGroupID      *string               `gorm:"type:varchar(50);index"`
	QCStatus         transfer.ReviewStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	ValidationStatus transfer.ReviewStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	ValidationError  string                `gorm:"type:varchar(500)"`
	CreatedAt        time.Time             `gorm:"not null"`
	UpdatedAt        time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransferItemModel) TableName() string {
	return "warehouse_transfer_items"
}

// ToDomain converts the persistence model to a domain TransferItem entity.
func (m *TransferItemModel) ToDomain() *transfer.TransferItem {
	return &transfer.TransferItem{
		ID:               m.ID,
		TransferID:       m.TransferID,
		ItemCode:         m.ItemCode,
		Description:      m.Description,
		UnitOfMeasure:    m.UnitOfMeasure,
		FromWarehouse:    m.FromWarehouse,
		ToWarehouse:      m.ToWarehouse,
		ItemType:         m.ItemType,
		IsSerialManaged:  m.IsSerialManaged,
		IsBatchManaged:   m.IsBatchManaged,
		SerialNumber:     m.SerialNumber,
		ExpectedQuantity: m.ExpectedQuantity,
		ScannedQuantity:  m.ScannedQuantity,
		CompletionStatus: transfer.CompletionStatus(m.CompletionStatus),
		ParentItemCode:   m.ParentItemCode,
		LineGroupID:      m.LineGroupID,
		QCStatus:         m.QCStatus,
		ValidationStatus: m.ValidationStatus,
		ValidationError:  m.ValidationError,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain TransferItem entity.
func (m *TransferItemModel) FromDomain(i *transfer.TransferItem) {
	m.ID = i.ID
	m.TransferID = i.TransferID
	m.ItemCode = i.ItemCode
	m.Description = i.Description
	m.UnitOfMeasure = i.UnitOfMeasure
	m.FromWarehouse = i.FromWarehouse
	m.ToWarehouse = i.ToWarehouse
	m.ItemType = i.ItemType
	m.IsSerialManaged = i.IsSerialManaged
	m.IsBatchManaged = i.IsBatchManaged
	m.SerialNumber = i.SerialNumber
	m.ExpectedQuantity = i.ExpectedQuantity
	m.ScannedQuantity = i.ScannedQuantity
	m.CompletionStatus = i.CompletionStatus.String()
	m.ParentItemCode = i.ParentItemCode
	m.LineGroupID = i.LineGroupID
	m.QCStatus = i.QCStatus
	m.ValidationStatus = i.ValidationStatus
	m.ValidationError = i.ValidationError
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// TransferItemModelFromDomain creates a new persistence model from a domain TransferItem entity.
func TransferItemModelFromDomain(i *transfer.TransferItem) *TransferItemModel {
	m := &TransferItemModel{}
	m.FromDomain(i)
	return m
}
