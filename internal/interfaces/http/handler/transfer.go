package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	transferapp "github.com/wms/backend/internal/application/transfer"
	"github.com/wms/backend/internal/domain/transfer"
	"github.com/wms/backend/internal/interfaces/http/dto"
	"github.com/wms/backend/internal/interfaces/http/middleware"
)

// TransferHandler handles warehouse transfer API endpoints
type TransferHandler struct {
	BaseHandler
	transferService *transferapp.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *transferapp.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// RegisterRoutes registers the transfer routes on the given group
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	transfers := rg.Group("/transfers")

	transfers.GET("", h.List)
	transfers.POST("", h.Create)
	transfers.GET("/by-number/:transfer_number", h.GetByTransferNumber)
	transfers.GET("/:id", h.GetByID)
	transfers.DELETE("/:id", h.Delete)
	transfers.GET("/:id/groups", h.GroupedView)
	transfers.POST("/:id/lines", h.AddLine)
	transfers.DELETE("/:id/lines/:item_id", h.RemoveLine)
	transfers.POST("/:id/lines/:item_id/scan", h.Scan)
	transfers.POST("/:id/lines/:item_id/quantity", h.RecordQuantity)
	transfers.POST("/:id/lines/:item_id/clear", h.ClearScan)
	transfers.POST("/:id/lines/:item_id/qc", middleware.RequireApprover(), h.SetLineQCStatus)
	transfers.POST("/:id/validate", h.Validate)
	transfers.POST("/:id/submit", h.Submit)
	transfers.POST("/:id/approve", middleware.RequireApprover(), h.Approve)
	transfers.POST("/:id/reject", middleware.RequireApprover(), h.Reject)
	transfers.POST("/:id/retry", h.Retry)
	transfers.POST("/:id/post", h.Post)
}

// ===================== Request Types =====================

// CreateTransferRequest is the request body for creating a transfer
type CreateTransferRequest struct {
	FromWarehouse string `json:"from_warehouse" binding:"required,warehouse_code"`
	ToWarehouse   string `json:"to_warehouse" binding:"required,warehouse_code"`
	Remark        string `json:"remark" binding:"max=500"`
}

// AddLineRequest is the request body for adding a logical item
type AddLineRequest struct {
	ItemCode      string  `json:"item_code" binding:"required,max=50"`
	Description   string  `json:"description" binding:"max=200"`
	UnitOfMeasure string  `json:"unit_of_measure" binding:"max=20"`
	Quantity      float64 `json:"quantity" binding:"required,gt=0"`
	SerialManaged *bool   `json:"serial_managed"`
	BatchManaged  *bool   `json:"batch_managed"`
}

// ScanRequest is the request body for recording a serial scan
type ScanRequest struct {
	SerialNumber string `json:"serial_number" binding:"required,max=100"`
}

// QuantityRequest is the request body for confirming quantity on a non-serial line
type QuantityRequest struct {
	Delta float64 `json:"delta" binding:"required"`
}

// QCStatusRequest is the request body for setting a line's QC status
type QCStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending passed failed"`
}

// SubmitRequest is the request body for submitting a transfer for QC
type SubmitRequest struct {
	Force bool `json:"force"`
}

// RejectRequest is the request body for rejecting a transfer
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ApproveRequest is the request body for approving a transfer
type ApproveRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// listQuery holds the list endpoint query parameters
type listQuery struct {
	dto.ListRequest
	Status        string `form:"status"`
	FromWarehouse string `form:"from_warehouse"`
	ToWarehouse   string `form:"to_warehouse"`
	CreatedByID   string `form:"created_by_id"`
	StartDate     string `form:"start_date"`
	EndDate       string `form:"end_date"`
}

// ===================== Query Handlers =====================

// GetByID retrieves a transfer with its lines
func (h *TransferHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByTransferNumber retrieves a transfer by its externally visible number
func (h *TransferHandler) GetByTransferNumber(c *gin.Context) {
	transferNumber := c.Param("transfer_number")
	if transferNumber == "" {
		h.BadRequest(c, "Transfer number is required")
		return
	}

	result, err := h.transferService.GetByTransferNumber(c.Request.Context(), transferNumber)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// List retrieves a paginated list of transfers
func (h *TransferHandler) List(c *gin.Context) {
	var query listQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	filter := transferapp.TransferListFilter{
		Page:          query.Page,
		PageSize:      query.PageSize,
		OrderBy:       query.OrderBy,
		OrderDir:      query.OrderDir,
		Search:        query.Search,
		FromWarehouse: query.FromWarehouse,
		ToWarehouse:   query.ToWarehouse,
	}

	if query.Status != "" {
		status := transfer.TransferStatus(query.Status)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid status value")
			return
		}
		filter.Status = &status
	}
	if query.CreatedByID != "" {
		creatorID, err := uuid.Parse(query.CreatedByID)
		if err != nil {
			h.BadRequest(c, "Invalid creator ID format")
			return
		}
		filter.CreatedByID = &creatorID
	}
	if query.StartDate != "" {
		startDate, err := parseDateTime(query.StartDate)
		if err != nil {
			h.BadRequest(c, "Invalid start_date format")
			return
		}
		filter.StartDate = &startDate
	}
	if query.EndDate != "" {
		endDate, err := parseDateTime(query.EndDate)
		if err != nil {
			h.BadRequest(c, "Invalid end_date format")
			return
		}
		filter.EndDate = &endDate
	}

	items, total, err := h.transferService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, items, total, query.Page, query.PageSize)
}

// GroupedView retrieves the lines of a transfer grouped by logical item
func (h *TransferHandler) GroupedView(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.GroupedView(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ===================== Command Handlers =====================

// Create creates a new draft transfer
func (h *TransferHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.transferService.Create(c.Request.Context(), transferapp.CreateTransferRequest{
		FromWarehouse: req.FromWarehouse,
		ToWarehouse:   req.ToWarehouse,
		Remark:        req.Remark,
		CreatedByID:   userID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Delete deletes a draft transfer
func (h *TransferHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	if err := h.transferService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// AddLine adds a logical item to a draft transfer. Serial-managed items expand
// into one line per unit.
func (h *TransferHandler) AddLine(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	var req AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.transferService.AddLine(c.Request.Context(), transferID, transferapp.AddLineRequest{
		ItemCode:      req.ItemCode,
		Description:   req.Description,
		UnitOfMeasure: req.UnitOfMeasure,
		Quantity:      decimal.NewFromFloat(req.Quantity),
		SerialManaged: req.SerialManaged,
		BatchManaged:  req.BatchManaged,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RemoveLine removes a line from a draft transfer
func (h *TransferHandler) RemoveLine(c *gin.Context) {
	transferID, itemID, ok := h.parseLineIDs(c)
	if !ok {
		return
	}

	if err := h.transferService.RemoveLine(c.Request.Context(), transferID, itemID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Scan records a serial number scan against a serial line
func (h *TransferHandler) Scan(c *gin.Context) {
	transferID, itemID, ok := h.parseLineIDs(c)
	if !ok {
		return
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.transferService.RecordScan(c.Request.Context(), transferID, itemID, req.SerialNumber)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RecordQuantity adjusts the scanned quantity of a non-serial line by a delta
func (h *TransferHandler) RecordQuantity(c *gin.Context) {
	transferID, itemID, ok := h.parseLineIDs(c)
	if !ok {
		return
	}

	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.transferService.RecordQuantity(c.Request.Context(), transferID, itemID, decimal.NewFromFloat(req.Delta))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ClearScan resets the scan state of a line
func (h *TransferHandler) ClearScan(c *gin.Context) {
	transferID, itemID, ok := h.parseLineIDs(c)
	if !ok {
		return
	}

	result, err := h.transferService.ClearScan(c.Request.Context(), transferID, itemID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// SetLineQCStatus sets the QC review status of a line
func (h *TransferHandler) SetLineQCStatus(c *gin.Context) {
	transferID, itemID, ok := h.parseLineIDs(c)
	if !ok {
		return
	}

	var req QCStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.transferService.SetItemQCStatus(c.Request.Context(), transferID, itemID, transfer.ReviewStatus(req.Status))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Validate runs serial validation against the ERP for every line
func (h *TransferHandler) Validate(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.ValidateLines(c.Request.Context(), transferID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Submit moves a transfer from draft to pending QC
func (h *TransferHandler) Submit(c *gin.Context) {
	h.transition(c, transfer.TransferStatusPendingQC, func(req *transferapp.TransitionRequest) error {
		var body SubmitRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				return err
			}
		}
		req.Force = body.Force
		return nil
	})
}

// Approve approves a pending transfer
func (h *TransferHandler) Approve(c *gin.Context) {
	h.transition(c, transfer.TransferStatusApproved, func(req *transferapp.TransitionRequest) error {
		var body ApproveRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				return err
			}
		}
		req.Note = body.Note
		return nil
	})
}

// Reject rejects a pending transfer with a reason
func (h *TransferHandler) Reject(c *gin.Context) {
	h.transition(c, transfer.TransferStatusRejected, func(req *transferapp.TransitionRequest) error {
		var body RejectRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			return err
		}
		req.Note = body.Reason
		return nil
	})
}

// Retry re-arms a failed transfer for another posting attempt
func (h *TransferHandler) Retry(c *gin.Context) {
	h.transition(c, transfer.TransferStatusApproved, func(*transferapp.TransitionRequest) error {
		return nil
	})
}

// Post sends an approved transfer to the ERP as a stock transfer document
func (h *TransferHandler) Post(c *gin.Context) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.Post(c.Request.Context(), transferID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ===================== Helpers =====================

func (h *TransferHandler) transition(c *gin.Context, target transfer.TransferStatus, bind func(*transferapp.TransitionRequest) error) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	req := transferapp.TransitionRequest{Target: target}
	if approverID, err := getUserID(c); err == nil {
		req.ApproverID = approverID
	}
	if err := bind(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.transferService.Transition(c.Request.Context(), transferID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *TransferHandler) parseLineIDs(c *gin.Context) (transferID, itemID uuid.UUID, ok bool) {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return uuid.Nil, uuid.Nil, false
	}
	itemID, err = uuid.Parse(c.Param("item_id"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return transferID, itemID, true
}

// parseDateTime parses dates in either date-only or RFC3339 form
func parseDateTime(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
