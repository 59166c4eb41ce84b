package transfer

import (
	"context"

	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/transfer"
)

// AuditLogHandler writes every transfer lifecycle event to the structured
// log. Force-overridden submissions are the interesting case for auditors:
// they pass QC with incomplete lines and are logged at warn level with the
// blocking item codes.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger}
}

// EventTypes returns the transfer events this handler subscribes to
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		transfer.EventTypeTransferCreated,
		transfer.EventTypeTransferLineAdded,
		transfer.EventTypeTransferSubmitted,
		transfer.EventTypeTransferApproved,
		transfer.EventTypeTransferRejected,
		transfer.EventTypeTransferPosted,
		transfer.EventTypeTransferPostingFailed,
	}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
	}

	switch e := event.(type) {
	case *transfer.TransferSubmittedEvent:
		fields = append(fields, zap.String("transfer_number", e.TransferNumber))
		if e.Forced {
			fields = append(fields, zap.Strings("blocking_codes", e.BlockingCodes))
			h.logger.Warn("transfer submitted with forced override", fields...)
			return nil
		}
	case *transfer.TransferRejectedEvent:
		fields = append(fields,
			zap.String("transfer_number", e.TransferNumber),
			zap.String("reason", e.Reason),
		)
	case *transfer.TransferPostingFailedEvent:
		fields = append(fields,
			zap.String("transfer_number", e.TransferNumber),
			zap.String("error", e.Error),
		)
	case *transfer.TransferPostedEvent:
		fields = append(fields,
			zap.String("transfer_number", e.TransferNumber),
			zap.String("document_number", e.DocumentNumber),
		)
	}

	h.logger.Info("transfer event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
