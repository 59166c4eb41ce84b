package transfer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTransfer(t *testing.T) *Transfer {
	t.Helper()
	tr, err := NewTransfer("WT-20260829-0001", "WH01", "WH02", uuid.New())
	require.NoError(t, err)
	return tr
}

func TestNewTransfer(t *testing.T) {
	t.Run("creates transfer with valid inputs", func(t *testing.T) {
		creatorID := uuid.New()
		tr, err := NewTransfer("WT-20260829-0001", "WH01", "WH02", creatorID)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, tr.ID)
		assert.Equal(t, "WT-20260829-0001", tr.TransferNumber)
		assert.Equal(t, TransferStatusDraft, tr.Status)
		assert.Equal(t, creatorID, tr.CreatedByID)
		assert.Nil(t, tr.SapDocumentNumber)
		assert.Len(t, tr.GetDomainEvents(), 1)
	})

	t.Run("fails with empty transfer number", func(t *testing.T) {
		_, err := NewTransfer("", "WH01", "WH02", uuid.New())
		require.Error(t, err)
	})

	t.Run("fails when warehouses are equal", func(t *testing.T) {
		_, err := NewTransfer("WT-001", "WH01", "WH01", uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must differ")
	})

	t.Run("fails with empty creator", func(t *testing.T) {
		_, err := NewTransfer("WT-001", "WH01", "WH02", uuid.Nil)
		require.Error(t, err)
	})
}

func TestTransfer_AddLines(t *testing.T) {
	t.Run("serial request for three units creates three grouped lines", func(t *testing.T) {
		tr := createTestTransfer(t)

		ids, err := tr.AddLines("WIDGET-001", "Widget A", "pcs",
			ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromInt(3))

		require.NoError(t, err)
		require.Len(t, ids, 3)
		require.Len(t, tr.Items, 3)
		groupID := tr.Items[0].LineGroupID
		require.NotNil(t, groupID)
		for _, item := range tr.Items {
			assert.Equal(t, ItemTypeSerial, item.ItemType)
			assert.True(t, item.ExpectedQuantity.Equal(decimal.NewFromInt(1)))
			assert.Equal(t, CompletionStatusPending, item.CompletionStatus)
			assert.Equal(t, *groupID, *item.LineGroupID)
			require.NotNil(t, item.ParentItemCode)
			assert.Equal(t, "WIDGET-001", *item.ParentItemCode)
		}
	})

	t.Run("non-serial request creates a single completed line", func(t *testing.T) {
		tr := createTestTransfer(t)

		ids, err := tr.AddLines("BULK-001", "Bulk Part", "kg",
			ItemMasterFlags{SerialManaged: boolPtr(false)}, decimal.NewFromInt(10))

		require.NoError(t, err)
		require.Len(t, ids, 1)
		item := tr.Items[0]
		assert.Equal(t, ItemTypeNonSerial, item.ItemType)
		assert.Nil(t, item.SerialNumber)
		assert.True(t, item.ScannedQuantity.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, CompletionStatusCompleted, item.CompletionStatus)
	})

	t.Run("duplicate serials across lines are permitted", func(t *testing.T) {
		tr := createTestTransfer(t)
		ids, err := tr.AddLines("WIDGET-001", "Widget A", "pcs",
			ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromInt(2))
		require.NoError(t, err)

		require.NoError(t, tr.RecordScan(ids[0], "SN-0001"))
		require.NoError(t, tr.RecordScan(ids[1], "SN-0001"))

		assert.Equal(t, "SN-0001", *tr.Items[0].SerialNumber)
		assert.Equal(t, "SN-0001", *tr.Items[1].SerialNumber)
	})

	t.Run("fails outside draft", func(t *testing.T) {
		tr := createTestTransfer(t)
		_, err := tr.AddLines("BULK-001", "Bulk Part", "kg",
			ItemMasterFlags{SerialManaged: boolPtr(false)}, decimal.NewFromInt(1))
		require.NoError(t, err)
		require.NoError(t, tr.SubmitForQC(false))

		_, err = tr.AddLines("BULK-002", "Other", "kg",
			ItemMasterFlags{SerialManaged: boolPtr(false)}, decimal.NewFromInt(1))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "draft")
	})
}

func TestTransfer_SubmitForQC(t *testing.T) {
	t.Run("fails naming incomplete item codes", func(t *testing.T) {
		tr := createTestTransfer(t)
		ids, err := tr.AddLines("WIDGET-001", "Widget A", "pcs",
			ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromInt(2))
		require.NoError(t, err)
		require.NoError(t, tr.RecordScan(ids[0], "SN-0001"))

		err = tr.SubmitForQC(false)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "WIDGET-001")
		assert.Equal(t, TransferStatusDraft, tr.Status)
	})

	t.Run("succeeds when all lines completed", func(t *testing.T) {
		tr := createTestTransfer(t)
		ids, err := tr.AddLines("WIDGET-001", "Widget A", "pcs",
			ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromInt(2))
		require.NoError(t, err)
		require.NoError(t, tr.RecordScan(ids[0], "SN-0001"))
		require.NoError(t, tr.RecordScan(ids[1], "SN-0002"))

		require.NoError(t, tr.SubmitForQC(false))
		assert.Equal(t, TransferStatusPendingQC, tr.Status)
	})

	t.Run("failed validation blocks submission", func(t *testing.T) {
		tr := createTestTransfer(t)
		ids, err := tr.AddLines("WIDGET-001", "Widget A", "pcs",
			ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromInt(1))
		require.NoError(t, err)
		require.NoError(t, tr.RecordScan(ids[0], "SN-0001"))
		require.NoError(t, tr.ApplyValidationResult(ids[0], false, "not in stock"))

		err = tr.SubmitForQC(false)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "WIDGET-001")
	})

	t.Run("force override bypasses the guard and is recorded", func(t *testing.T) {
		tr := createTestTransfer(t)
		_, err := tr.AddLines("WIDGET-001", "Widget A", "pcs",
			ItemMasterFlags{SerialManaged: boolPtr(true)}, decimal.NewFromInt(1))
		require.NoError(t, err)
		tr.ClearDomainEvents()

		require.NoError(t, tr.SubmitForQC(true))

		assert.Equal(t, TransferStatusPendingQC, tr.Status)
		events := tr.GetDomainEvents()
		require.Len(t, events, 1)
		submitted, ok := events[0].(*TransferSubmittedEvent)
		require.True(t, ok)
		assert.True(t, submitted.Forced)
		assert.Equal(t, []string{"WIDGET-001"}, submitted.BlockingCodes)
	})

	t.Run("fails with no lines", func(t *testing.T) {
		tr := createTestTransfer(t)
		err := tr.SubmitForQC(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no lines")
	})
}

func TestTransfer_ApprovalFlow(t *testing.T) {
	readyTransfer := func(t *testing.T) *Transfer {
		tr := createTestTransfer(t)
		_, err := tr.AddLines("BULK-001", "Bulk Part", "kg",
			ItemMasterFlags{SerialManaged: boolPtr(false)}, decimal.NewFromInt(5))
		require.NoError(t, err)
		require.NoError(t, tr.SubmitForQC(false))
		return tr
	}

	t.Run("approve records approver and timestamp", func(t *testing.T) {
		tr := readyTransfer(t)
		approverID := uuid.New()

		require.NoError(t, tr.Approve(approverID, "looks good"))

		assert.Equal(t, TransferStatusApproved, tr.Status)
		assert.Equal(t, approverID, *tr.QCApproverID)
		assert.NotNil(t, tr.QCApprovedAt)
	})

	t.Run("approve requires an approver", func(t *testing.T) {
		tr := readyTransfer(t)
		err := tr.Approve(uuid.Nil, "")
		require.Error(t, err)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		tr := readyTransfer(t)
		err := tr.Reject(uuid.New(), "")
		require.Error(t, err)

		require.NoError(t, tr.Reject(uuid.New(), "quantities off"))
		assert.Equal(t, TransferStatusRejected, tr.Status)
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		tr := readyTransfer(t)
		require.NoError(t, tr.Reject(uuid.New(), "bad"))

		err := tr.Approve(uuid.New(), "")
		require.Error(t, err)
		err = tr.SubmitForQC(true)
		require.Error(t, err)
	})

	t.Run("approve from draft is rejected", func(t *testing.T) {
		tr := createTestTransfer(t)
		err := tr.Approve(uuid.New(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot transition")
	})
}

func TestTransfer_PostingFlow(t *testing.T) {
	approvedTransfer := func(t *testing.T) *Transfer {
		tr := createTestTransfer(t)
		_, err := tr.AddLines("BULK-001", "Bulk Part", "kg",
			ItemMasterFlags{SerialManaged: boolPtr(false)}, decimal.NewFromInt(5))
		require.NoError(t, err)
		require.NoError(t, tr.SubmitForQC(false))
		require.NoError(t, tr.Approve(uuid.New(), ""))
		return tr
	}

	t.Run("successful post records document number", func(t *testing.T) {
		tr := approvedTransfer(t)

		require.NoError(t, tr.MarkPosted("1000123"))

		assert.Equal(t, TransferStatusPosted, tr.Status)
		assert.Equal(t, "1000123", *tr.SapDocumentNumber)
	})

	t.Run("posted is terminal", func(t *testing.T) {
		tr := approvedTransfer(t)
		require.NoError(t, tr.MarkPosted("1000123"))

		err := tr.MarkPostingFailed("late error")
		require.Error(t, err)
	})

	t.Run("failed post parks transfer with error and no document", func(t *testing.T) {
		tr := approvedTransfer(t)

		require.NoError(t, tr.MarkPostingFailed("connection refused"))

		assert.Equal(t, TransferStatusFailed, tr.Status)
		assert.Equal(t, "connection refused", tr.PostingError)
		assert.Nil(t, tr.SapDocumentNumber)
	})

	t.Run("failed transfer can retry posting without re-running QC", func(t *testing.T) {
		tr := approvedTransfer(t)
		approver := *tr.QCApproverID
		require.NoError(t, tr.MarkPostingFailed("timeout"))

		require.NoError(t, tr.RetryPosting())
		assert.Equal(t, TransferStatusApproved, tr.Status)
		assert.Equal(t, approver, *tr.QCApproverID)

		require.NoError(t, tr.MarkPosted("1000124"))
		assert.Equal(t, "1000124", *tr.SapDocumentNumber)
		assert.Empty(t, tr.PostingError)
	})

	t.Run("retry from non-failed state is rejected", func(t *testing.T) {
		tr := approvedTransfer(t)
		err := tr.RetryPosting()
		require.Error(t, err)
	})

	t.Run("post requires a document number", func(t *testing.T) {
		tr := approvedTransfer(t)
		err := tr.MarkPosted("")
		require.Error(t, err)
		assert.Equal(t, TransferStatusApproved, tr.Status)
	})
}

func TestTransfer_Deletion(t *testing.T) {
	t.Run("draft transfers may be deleted", func(t *testing.T) {
		tr := createTestTransfer(t)
		assert.True(t, tr.CanDelete())
	})

	t.Run("submitted transfers may not be deleted", func(t *testing.T) {
		tr := createTestTransfer(t)
		_, err := tr.AddLines("BULK-001", "Bulk Part", "kg",
			ItemMasterFlags{SerialManaged: boolPtr(false)}, decimal.NewFromInt(1))
		require.NoError(t, err)
		require.NoError(t, tr.SubmitForQC(false))

		assert.False(t, tr.CanDelete())
	})
}

func TestTransferStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    TransferStatus
		to      TransferStatus
		allowed bool
	}{
		{TransferStatusDraft, TransferStatusPendingQC, true},
		{TransferStatusDraft, TransferStatusApproved, false},
		{TransferStatusDraft, TransferStatusPosted, false},
		{TransferStatusPendingQC, TransferStatusApproved, true},
		{TransferStatusPendingQC, TransferStatusRejected, true},
		{TransferStatusPendingQC, TransferStatusPosted, false},
		{TransferStatusApproved, TransferStatusPosted, true},
		{TransferStatusApproved, TransferStatusFailed, true},
		{TransferStatusApproved, TransferStatusPendingQC, false},
		{TransferStatusFailed, TransferStatusApproved, true},
		{TransferStatusFailed, TransferStatusPosted, false},
		{TransferStatusRejected, TransferStatusDraft, false},
		{TransferStatusPosted, TransferStatusApproved, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}
