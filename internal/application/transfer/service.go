package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/sap"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/transfer"
)

// PostingGuard prevents duplicate poster invocations for the same transfer
// across service instances. Acquire returns false when another posting attempt
// already holds the key.
type PostingGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// postingGuardTTL bounds how long a crashed posting attempt can block retries
const postingGuardTTL = 5 * time.Minute

// createNumberAttempts bounds retries when concurrent creates race for the
// same daily transfer number
const createNumberAttempts = 3

// TransferService provides the command surface over the transfer aggregate.
// All mutating operations are serialized per transfer ID; validator calls fan
// out concurrently across lines.
type TransferService struct {
	repo       transfer.TransferRepository
	eventBus   shared.EventPublisher
	itemMaster sap.ItemMasterGateway
	validator  sap.SerialValidator
	poster     sap.DocumentPoster
	postGuard  PostingGuard
	locks      *keyedMutex
	logger     *zap.Logger
}

// NewTransferService creates a new TransferService
func NewTransferService(
	repo transfer.TransferRepository,
	eventBus shared.EventPublisher,
	itemMaster sap.ItemMasterGateway,
	validator sap.SerialValidator,
	poster sap.DocumentPoster,
	postGuard PostingGuard,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		repo:       repo,
		eventBus:   eventBus,
		itemMaster: itemMaster,
		validator:  validator,
		poster:     poster,
		postGuard:  postGuard,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// ===================== Query Methods =====================

// GetByID retrieves a transfer by ID
func (s *TransferService) GetByID(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(t)
	return &response, nil
}

// GetByTransferNumber retrieves a transfer by its externally visible number
func (s *TransferService) GetByTransferNumber(ctx context.Context, transferNumber string) (*TransferResponse, error) {
	t, err := s.repo.FindByTransferNumber(ctx, transferNumber)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(t)
	return &response, nil
}

// List retrieves a paginated list of transfers
func (s *TransferService) List(ctx context.Context, filter TransferListFilter) ([]TransferListResponse, int64, error) {
	domainFilter := transfer.TransferFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		Status:        filter.Status,
		FromWarehouse: filter.FromWarehouse,
		ToWarehouse:   filter.ToWarehouse,
		CreatedByID:   filter.CreatedByID,
		StartDate:     filter.StartDate,
		EndDate:       filter.EndDate,
	}

	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	transfers, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TransferListResponse, len(transfers))
	for i := range transfers {
		responses[i] = ToTransferListResponse(&transfers[i])
	}
	return responses, total, nil
}

// GroupedView returns the logical-item roll-up of a transfer's lines
func (s *TransferService) GroupedView(ctx context.Context, id uuid.UUID) ([]LineGroupResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToLineGroupResponses(t.GroupedView()), nil
}

// ===================== Command Methods =====================

// Create creates a new transfer in draft status
func (s *TransferService) Create(ctx context.Context, req CreateTransferRequest) (*TransferResponse, error) {
	var t *transfer.Transfer
	for attempt := 1; ; attempt++ {
		number, err := s.repo.NextTransferNumber(ctx, time.Now())
		if err != nil {
			return nil, err
		}

		t, err = transfer.NewTransfer(number, req.FromWarehouse, req.ToWarehouse, req.CreatedByID)
		if err != nil {
			return nil, err
		}
		if req.Remark != "" {
			t.SetRemark(req.Remark)
		}

		err = s.saveAndPublish(ctx, t)
		if err == nil {
			break
		}
		// Concurrent creates can reserve the same daily sequence number;
		// the unique index rejects the loser, which retries with a fresh one.
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "ALREADY_EXISTS" && attempt < createNumberAttempts {
			continue
		}
		return nil, err
	}

	s.logger.Info("transfer created",
		zap.String("transfer_number", t.TransferNumber),
		zap.String("from_warehouse", t.FromWarehouse),
		zap.String("to_warehouse", t.ToWarehouse),
	)

	response := ToTransferResponse(t)
	return &response, nil
}

// AddLine classifies the requested item and adds the resulting lines to the
// transfer. Item master flags come from the ERP unless the request carries
// them explicitly.
func (s *TransferService) AddLine(ctx context.Context, transferID uuid.UUID, req AddLineRequest) (*TransferResponse, error) {
	flags := transfer.ItemMasterFlags{
		SerialManaged: req.SerialManaged,
		BatchManaged:  req.BatchManaged,
	}
	description := req.Description
	unit := req.UnitOfMeasure

	if !flags.Known() {
		master, err := s.itemMaster.GetItemMaster(ctx, req.ItemCode)
		if err != nil {
			return nil, err
		}
		flags.SerialManaged = &master.SerialManaged
		flags.BatchManaged = &master.BatchManaged
		if description == "" {
			description = master.Description
		}
		if unit == "" {
			unit = master.UnitOfMeasure
		}
	}

	s.locks.Lock(transferID)
	defer s.locks.Unlock(transferID)

	t, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if _, err := t.AddLines(req.ItemCode, description, unit, flags, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.saveAndPublish(ctx, t); err != nil {
		return nil, err
	}

	response := ToTransferResponse(t)
	return &response, nil
}

// RemoveLine removes a line from a draft transfer
func (s *TransferService) RemoveLine(ctx context.Context, transferID, itemID uuid.UUID) error {
	s.locks.Lock(transferID)
	defer s.locks.Unlock(transferID)

	t, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		return err
	}
	if err := t.RemoveLine(itemID); err != nil {
		return err
	}
	return s.saveAndPublish(ctx, t)
}

// RecordScan records a serial number against a line
func (s *TransferService) RecordScan(ctx context.Context, transferID, itemID uuid.UUID, serialNumber string) (*TransferResponse, error) {
	return s.mutate(ctx, transferID, func(t *transfer.Transfer) error {
		return t.RecordScan(itemID, serialNumber)
	})
}

// RecordQuantity applies a signed quantity delta to a line
func (s *TransferService) RecordQuantity(ctx context.Context, transferID, itemID uuid.UUID, delta decimal.Decimal) (*TransferResponse, error) {
	return s.mutate(ctx, transferID, func(t *transfer.Transfer) error {
		return t.RecordQuantity(itemID, delta)
	})
}

// ClearScan resets a line's reconciliation state
func (s *TransferService) ClearScan(ctx context.Context, transferID, itemID uuid.UUID) (*TransferResponse, error) {
	return s.mutate(ctx, transferID, func(t *transfer.Transfer) error {
		return t.ClearScan(itemID)
	})
}

// SetItemQCStatus records a per-line QC verdict during review
func (s *TransferService) SetItemQCStatus(ctx context.Context, transferID, itemID uuid.UUID, status transfer.ReviewStatus) (*TransferResponse, error) {
	return s.mutate(ctx, transferID, func(t *transfer.Transfer) error {
		return t.SetItemQCStatus(itemID, status)
	})
}

// Transition drives the transfer state machine toward the requested status
func (s *TransferService) Transition(ctx context.Context, transferID uuid.UUID, req TransitionRequest) (*TransferResponse, error) {
	return s.mutate(ctx, transferID, func(t *transfer.Transfer) error {
		switch req.Target {
		case transfer.TransferStatusPendingQC:
			return t.SubmitForQC(req.Force)
		case transfer.TransferStatusApproved:
			if t.Status == transfer.TransferStatusFailed {
				return t.RetryPosting()
			}
			return t.Approve(req.ApproverID, req.Note)
		case transfer.TransferStatusRejected:
			return t.Reject(req.ApproverID, req.Note)
		default:
			return shared.NewDomainError("INVALID_TRANSITION",
				fmt.Sprintf("Status %s cannot be requested directly", req.Target))
		}
	})
}

// Delete removes a draft transfer and its lines. Anything past draft must be
// rejected instead, to preserve the audit trail.
func (s *TransferService) Delete(ctx context.Context, transferID uuid.UUID) error {
	s.locks.Lock(transferID)
	defer s.locks.Unlock(transferID)

	t, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		return err
	}
	if !t.CanDelete() {
		return shared.NewDomainError("INVALID_STATUS",
			"Only draft transfers may be deleted; reject the transfer instead")
	}
	return s.repo.Delete(ctx, transferID)
}

// ValidateLines submits every line to the external validator. Calls run
// concurrently across lines; results are applied to the aggregate under the
// transfer lock and persisted in one unit of work.
func (s *TransferService) ValidateLines(ctx context.Context, transferID uuid.UUID) (*ValidationSummary, error) {
	s.locks.Lock(transferID)
	defer s.locks.Unlock(transferID)

	t, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	results := make([]sap.ValidationResult, len(t.Items))
	var wg sync.WaitGroup
	for i := range t.Items {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			item := t.Items[idx]
			if item.ItemType == transfer.ItemTypeSerial && item.SerialNumber != nil {
				results[idx] = s.validator.ValidateSerial(ctx, item.ItemCode, *item.SerialNumber, item.FromWarehouse)
			} else {
				results[idx] = s.validator.ValidateItem(ctx, item.ItemCode, item.FromWarehouse)
			}
		}(i)
	}
	wg.Wait()

	summary := &ValidationSummary{TotalLines: len(t.Items)}
	for i := range t.Items {
		if err := t.ApplyValidationResult(t.Items[i].ID, results[i].Valid, results[i].Message); err != nil {
			return nil, err
		}
		if results[i].Valid {
			summary.PassedLines++
		} else {
			summary.FailedLines++
		}
	}

	if err := s.saveAndPublish(ctx, t); err != nil {
		return nil, err
	}

	if summary.FailedLines > 0 {
		s.logger.Warn("line validation finished with failures",
			zap.String("transfer_number", t.TransferNumber),
			zap.Int("failed_lines", summary.FailedLines),
		)
	}

	return summary, nil
}

// Post submits an approved transfer to the ERP. The resulting document number
// is recorded atomically with the status change; the posting guard keeps a
// second instance from creating a duplicate document while an attempt is in
// flight.
func (s *TransferService) Post(ctx context.Context, transferID uuid.UUID) (*TransferResponse, error) {
	s.locks.Lock(transferID)
	defer s.locks.Unlock(transferID)

	t, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Status != transfer.TransferStatusApproved {
		return nil, shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot post a transfer in %s status", t.Status))
	}

	guardKey := "transfer-post:" + transferID.String()
	acquired, err := s.postGuard.Acquire(ctx, guardKey, postingGuardTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, shared.NewDomainError("POSTING_IN_PROGRESS",
			"A posting attempt for this transfer is already in flight")
	}

	result := s.poster.PostStockTransfer(ctx, buildStockTransferDocument(t))

	if result.Success {
		if err := t.MarkPosted(result.DocumentNumber); err != nil {
			return nil, err
		}
		if err := s.saveAndPublish(ctx, t); err != nil {
			return nil, err
		}
		s.logger.Info("transfer posted",
			zap.String("transfer_number", t.TransferNumber),
			zap.String("document_number", result.DocumentNumber),
		)
	} else {
		if err := t.MarkPostingFailed(result.ErrorMessage); err != nil {
			return nil, err
		}
		if err := s.saveAndPublish(ctx, t); err != nil {
			return nil, err
		}
		// Free the guard so a retry from failed state can post again.
		if err := s.postGuard.Release(ctx, guardKey); err != nil {
			s.logger.Warn("failed to release posting guard",
				zap.String("transfer_id", transferID.String()),
				zap.Error(err),
			)
		}
		s.logger.Error("transfer posting failed",
			zap.String("transfer_number", t.TransferNumber),
			zap.String("error", result.ErrorMessage),
		)
	}

	response := ToTransferResponse(t)
	return &response, nil
}

// ===================== Helpers =====================

// mutate runs a mutation on the aggregate under the per-transfer lock and
// persists the result atomically
func (s *TransferService) mutate(ctx context.Context, transferID uuid.UUID, fn func(*transfer.Transfer) error) (*TransferResponse, error) {
	s.locks.Lock(transferID)
	defer s.locks.Unlock(transferID)

	t, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := s.saveAndPublish(ctx, t); err != nil {
		return nil, err
	}

	response := ToTransferResponse(t)
	return &response, nil
}

// saveAndPublish persists the aggregate and publishes its pending events
func (s *TransferService) saveAndPublish(ctx context.Context, t *transfer.Transfer) error {
	if err := s.repo.Save(ctx, t); err != nil {
		return err
	}

	events := t.GetDomainEvents()
	if len(events) > 0 {
		if err := s.eventBus.Publish(ctx, events...); err != nil {
			s.logger.Error("failed to publish transfer events",
				zap.String("transfer_id", t.ID.String()),
				zap.Error(err),
			)
		}
		t.ClearDomainEvents()
	}
	return nil
}

// buildStockTransferDocument converts the aggregate's grouped lines into the
// ERP document shape: one document line per logical item, serial numbers
// attached per line.
func buildStockTransferDocument(t *transfer.Transfer) *sap.StockTransferDocument {
	doc := &sap.StockTransferDocument{
		Reference:     t.TransferNumber,
		FromWarehouse: t.FromWarehouse,
		ToWarehouse:   t.ToWarehouse,
		Comments:      t.Remark,
	}

	for _, group := range t.GroupedView() {
		line := sap.StockTransferLine{
			ItemCode:      group.ItemCode,
			Quantity:      group.ScannedQuantity,
			FromWarehouse: t.FromWarehouse,
			ToWarehouse:   t.ToWarehouse,
		}
		if group.ItemType == transfer.ItemTypeSerial {
			for _, id := range group.MemberIDs {
				if item := t.FindItem(id); item != nil && item.SerialNumber != nil {
					line.SerialNumbers = append(line.SerialNumbers, *item.SerialNumber)
				}
			}
		}
		doc.Lines = append(doc.Lines, line)
	}

	return doc
}
