package transfer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/sap"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/transfer"
)

// fakeTransferRepo is an in-memory TransferRepository for service tests
type fakeTransferRepo struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]*transfer.Transfer
	sequence  int
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{transfers: make(map[uuid.UUID]*transfer.Transfer)}
}

func (r *fakeTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *t
	clone.Items = append([]transfer.TransferItem(nil), t.Items...)
	return &clone, nil
}

func (r *fakeTransferRepo) FindByTransferNumber(_ context.Context, number string) (*transfer.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transfers {
		if t.TransferNumber == number {
			clone := *t
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeTransferRepo) FindAll(_ context.Context, _ transfer.TransferFilter) ([]transfer.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]transfer.Transfer, 0, len(r.transfers))
	for _, t := range r.transfers {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTransferRepo) FindByStatus(_ context.Context, status transfer.TransferStatus, _ shared.Filter) ([]transfer.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]transfer.Transfer, 0)
	for _, t := range r.transfers {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTransferRepo) Count(_ context.Context, _ transfer.TransferFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.transfers)), nil
}

func (r *fakeTransferRepo) Save(_ context.Context, t *transfer.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *t
	clone.Items = append([]transfer.TransferItem(nil), t.Items...)
	r.transfers[t.ID] = &clone
	return nil
}

func (r *fakeTransferRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transfers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.transfers, id)
	return nil
}

func (r *fakeTransferRepo) NextTransferNumber(_ context.Context, day time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequence++
	return fmt.Sprintf("WT-%s-%04d", day.Format("20060102"), r.sequence), nil
}

// collectingPublisher records published events
type collectingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *collectingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *collectingPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.DomainEvent, 0)
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockItemMasterGateway is a mock implementation of sap.ItemMasterGateway
type MockItemMasterGateway struct {
	mock.Mock
}

func (m *MockItemMasterGateway) GetItemMaster(ctx context.Context, itemCode string) (*sap.ItemMasterData, error) {
	args := m.Called(ctx, itemCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sap.ItemMasterData), args.Error(1)
}

// MockSerialValidator is a mock implementation of sap.SerialValidator
type MockSerialValidator struct {
	mock.Mock
}

func (m *MockSerialValidator) ValidateSerial(ctx context.Context, itemCode, serialNumber, warehouseCode string) sap.ValidationResult {
	args := m.Called(ctx, itemCode, serialNumber, warehouseCode)
	return args.Get(0).(sap.ValidationResult)
}

func (m *MockSerialValidator) ValidateItem(ctx context.Context, itemCode, warehouseCode string) sap.ValidationResult {
	args := m.Called(ctx, itemCode, warehouseCode)
	return args.Get(0).(sap.ValidationResult)
}

// MockDocumentPoster is a mock implementation of sap.DocumentPoster
type MockDocumentPoster struct {
	mock.Mock
}

func (m *MockDocumentPoster) PostStockTransfer(ctx context.Context, doc *sap.StockTransferDocument) sap.PostResult {
	args := m.Called(ctx, doc)
	return args.Get(0).(sap.PostResult)
}

// memoryGuard is a trivial in-process PostingGuard for tests
type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{keys: make(map[string]bool)}
}

func (g *memoryGuard) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

type serviceFixture struct {
	service    *TransferService
	repo       *fakeTransferRepo
	publisher  *collectingPublisher
	itemMaster *MockItemMasterGateway
	validator  *MockSerialValidator
	poster     *MockDocumentPoster
	guard      *memoryGuard
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:       newFakeTransferRepo(),
		publisher:  &collectingPublisher{},
		itemMaster: &MockItemMasterGateway{},
		validator:  &MockSerialValidator{},
		poster:     &MockDocumentPoster{},
		guard:      newMemoryGuard(),
	}
	f.service = NewTransferService(f.repo, f.publisher, f.itemMaster, f.validator, f.poster, f.guard, zap.NewNop())
	return f
}

func (f *serviceFixture) createTransfer(t *testing.T) *TransferResponse {
	t.Helper()
	resp, err := f.service.Create(context.Background(), CreateTransferRequest{
		FromWarehouse: "WH01",
		ToWarehouse:   "WH02",
		CreatedByID:   uuid.New(),
	})
	require.NoError(t, err)
	return resp
}

func TestTransferService_Create(t *testing.T) {
	f := newServiceFixture()

	resp := f.createTransfer(t)

	assert.Contains(t, resp.TransferNumber, "WT-")
	assert.Equal(t, transfer.TransferStatusDraft, resp.Status)
	assert.Len(t, f.publisher.byType(transfer.EventTypeTransferCreated), 1)
}

// duplicateNumberRepo rejects the first Save attempts with ALREADY_EXISTS to
// simulate two instances racing for the same daily sequence number
type duplicateNumberRepo struct {
	*fakeTransferRepo
	rejections int
}

func (r *duplicateNumberRepo) Save(ctx context.Context, t *transfer.Transfer) error {
	if r.rejections > 0 {
		r.rejections--
		return shared.ErrAlreadyExists
	}
	return r.fakeTransferRepo.Save(ctx, t)
}

func TestTransferService_CreateRetriesOnNumberCollision(t *testing.T) {
	newService := func(rejections int) *TransferService {
		repo := &duplicateNumberRepo{fakeTransferRepo: newFakeTransferRepo(), rejections: rejections}
		return NewTransferService(repo, &collectingPublisher{}, &MockItemMasterGateway{},
			&MockSerialValidator{}, &MockDocumentPoster{}, newMemoryGuard(), zap.NewNop())
	}

	t.Run("retries with a fresh number after a collision", func(t *testing.T) {
		resp, err := newService(1).Create(context.Background(), CreateTransferRequest{
			FromWarehouse: "WH01",
			ToWarehouse:   "WH02",
			CreatedByID:   uuid.New(),
		})
		require.NoError(t, err)
		assert.Contains(t, resp.TransferNumber, "-0002")
	})

	t.Run("gives up once retries are exhausted", func(t *testing.T) {
		_, err := newService(createNumberAttempts).Create(context.Background(), CreateTransferRequest{
			FromWarehouse: "WH01",
			ToWarehouse:   "WH02",
			CreatedByID:   uuid.New(),
		})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestTransferService_AddLine(t *testing.T) {
	ctx := context.Background()

	t.Run("looks up item master when flags absent", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)
		f.itemMaster.On("GetItemMaster", mock.Anything, "WIDGET-001").Return(&sap.ItemMasterData{
			ItemCode:      "WIDGET-001",
			Description:   "Widget A",
			UnitOfMeasure: "pcs",
			SerialManaged: true,
		}, nil)

		resp, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
			ItemCode: "WIDGET-001",
			Quantity: decimal.NewFromInt(3),
		})

		require.NoError(t, err)
		require.Len(t, resp.Items, 3)
		assert.Equal(t, "Widget A", resp.Items[0].Description)
		assert.Equal(t, transfer.ItemTypeSerial, resp.Items[0].ItemType)
		f.itemMaster.AssertExpectations(t)
	})

	t.Run("uses explicit flags without a lookup", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)
		serialManaged := false

		resp, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
			ItemCode:      "BULK-001",
			Description:   "Bulk Part",
			UnitOfMeasure: "kg",
			Quantity:      decimal.NewFromInt(10),
			SerialManaged: &serialManaged,
		})

		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "completed", resp.Items[0].CompletionStatus)
		f.itemMaster.AssertNotCalled(t, "GetItemMaster", mock.Anything, mock.Anything)
	})

	t.Run("propagates classification errors", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)
		serialManaged := true

		_, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
			ItemCode:      "WIDGET-001",
			Quantity:      decimal.Zero,
			SerialManaged: &serialManaged,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "greater than zero")
	})
}

func TestTransferService_QuantityReconciliation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	created := f.createTransfer(t)
	serialManaged := false
	resp, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
		ItemCode: "BULK-001", Description: "Bulk Part", UnitOfMeasure: "kg",
		Quantity: decimal.NewFromInt(10), SerialManaged: &serialManaged,
	})
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	// reset the auto-populated quantity, then count up in two steps
	resp, err = f.service.ClearScan(ctx, created.ID, itemID)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Items[0].CompletionStatus)

	resp, err = f.service.RecordQuantity(ctx, created.ID, itemID, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.Equal(t, "partial", resp.Items[0].CompletionStatus)
	assert.True(t, resp.Items[0].ScannedQuantity.Equal(decimal.NewFromInt(4)))

	resp, err = f.service.RecordQuantity(ctx, created.ID, itemID, decimal.NewFromInt(6))
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Items[0].CompletionStatus)

	_, err = f.service.RecordQuantity(ctx, created.ID, itemID, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceed")

	// the rejected delta must leave persisted state untouched
	current, err := f.service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, current.Items[0].ScannedQuantity.Equal(decimal.NewFromInt(10)))
}

func TestTransferService_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("submit fails naming pending item codes", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)
		serialManaged := true
		_, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
			ItemCode: "WIDGET-001", Description: "Widget A", UnitOfMeasure: "pcs",
			Quantity: decimal.NewFromInt(1), SerialManaged: &serialManaged,
		})
		require.NoError(t, err)

		_, err = f.service.Transition(ctx, created.ID, TransitionRequest{Target: transfer.TransferStatusPendingQC})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "WIDGET-001")
	})

	t.Run("forced submit is published for audit", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)
		serialManaged := true
		_, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
			ItemCode: "WIDGET-001", Description: "Widget A", UnitOfMeasure: "pcs",
			Quantity: decimal.NewFromInt(1), SerialManaged: &serialManaged,
		})
		require.NoError(t, err)

		resp, err := f.service.Transition(ctx, created.ID, TransitionRequest{
			Target: transfer.TransferStatusPendingQC,
			Force:  true,
		})

		require.NoError(t, err)
		assert.Equal(t, transfer.TransferStatusPendingQC, resp.Status)
		submitted := f.publisher.byType(transfer.EventTypeTransferSubmitted)
		require.Len(t, submitted, 1)
		assert.True(t, submitted[0].(*transfer.TransferSubmittedEvent).Forced)
	})

	t.Run("direct request for posted status is rejected", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)

		_, err := f.service.Transition(ctx, created.ID, TransitionRequest{Target: transfer.TransferStatusPosted})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be requested directly")
	})
}

func TestTransferService_ValidateLines(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	created := f.createTransfer(t)
	serialManaged := true
	resp, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
		ItemCode: "WIDGET-001", Description: "Widget A", UnitOfMeasure: "pcs",
		Quantity: decimal.NewFromInt(2), SerialManaged: &serialManaged,
	})
	require.NoError(t, err)
	_, err = f.service.RecordScan(ctx, created.ID, resp.Items[0].ID, "SN-0001")
	require.NoError(t, err)
	_, err = f.service.RecordScan(ctx, created.ID, resp.Items[1].ID, "SN-0002")
	require.NoError(t, err)

	f.validator.On("ValidateSerial", mock.Anything, "WIDGET-001", "SN-0001", "WH01").
		Return(sap.ValidationResult{Valid: true})
	f.validator.On("ValidateSerial", mock.Anything, "WIDGET-001", "SN-0002", "WH01").
		Return(sap.ValidationResult{Valid: false, Message: "serial not in stock"})

	summary, err := f.service.ValidateLines(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalLines)
	assert.Equal(t, 1, summary.PassedLines)
	assert.Equal(t, 1, summary.FailedLines)

	current, err := f.service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	statuses := map[string]transfer.ReviewStatus{}
	for _, item := range current.Items {
		statuses[*item.SerialNumber] = item.ValidationStatus
	}
	assert.Equal(t, transfer.ReviewStatusPassed, statuses["SN-0001"])
	assert.Equal(t, transfer.ReviewStatusFailed, statuses["SN-0002"])
	f.validator.AssertExpectations(t)
}

func TestTransferService_Post(t *testing.T) {
	ctx := context.Background()

	approvedTransfer := func(t *testing.T, f *serviceFixture) uuid.UUID {
		t.Helper()
		created := f.createTransfer(t)
		serialManaged := false
		_, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
			ItemCode: "BULK-001", Description: "Bulk Part", UnitOfMeasure: "kg",
			Quantity: decimal.NewFromInt(5), SerialManaged: &serialManaged,
		})
		require.NoError(t, err)
		_, err = f.service.Transition(ctx, created.ID, TransitionRequest{Target: transfer.TransferStatusPendingQC})
		require.NoError(t, err)
		_, err = f.service.Transition(ctx, created.ID, TransitionRequest{
			Target:     transfer.TransferStatusApproved,
			ApproverID: uuid.New(),
		})
		require.NoError(t, err)
		return created.ID
	}

	t.Run("successful post records document number", func(t *testing.T) {
		f := newServiceFixture()
		id := approvedTransfer(t, f)
		f.poster.On("PostStockTransfer", mock.Anything, mock.Anything).
			Return(sap.PostResult{Success: true, DocumentNumber: "1000123"})

		resp, err := f.service.Post(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, transfer.TransferStatusPosted, resp.Status)
		assert.Equal(t, "1000123", *resp.SapDocumentNumber)
		f.poster.AssertNumberOfCalls(t, "PostStockTransfer", 1)
	})

	t.Run("failed post then retry creates exactly one document", func(t *testing.T) {
		f := newServiceFixture()
		id := approvedTransfer(t, f)
		f.poster.On("PostStockTransfer", mock.Anything, mock.Anything).
			Return(sap.PostResult{Success: false, ErrorMessage: "connection refused"}).Once()
		f.poster.On("PostStockTransfer", mock.Anything, mock.Anything).
			Return(sap.PostResult{Success: true, DocumentNumber: "1000124"}).Once()

		resp, err := f.service.Post(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, transfer.TransferStatusFailed, resp.Status)
		assert.Nil(t, resp.SapDocumentNumber)
		assert.Equal(t, "connection refused", resp.PostingError)

		// retry path: failed -> approved -> post again
		_, err = f.service.Transition(ctx, id, TransitionRequest{Target: transfer.TransferStatusApproved})
		require.NoError(t, err)
		resp, err = f.service.Post(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, transfer.TransferStatusPosted, resp.Status)
		assert.Equal(t, "1000124", *resp.SapDocumentNumber)
		f.poster.AssertNumberOfCalls(t, "PostStockTransfer", 2)
	})

	t.Run("posting from non-approved state is rejected", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)

		_, err := f.service.Post(ctx, created.ID)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot post")
		f.poster.AssertNotCalled(t, "PostStockTransfer", mock.Anything, mock.Anything)
	})

	t.Run("held guard blocks a second attempt", func(t *testing.T) {
		f := newServiceFixture()
		id := approvedTransfer(t, f)
		acquired, err := f.guard.Acquire(ctx, "transfer-post:"+id.String(), time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)

		_, err = f.service.Post(ctx, id)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already in flight")
		f.poster.AssertNotCalled(t, "PostStockTransfer", mock.Anything, mock.Anything)
	})
}

func TestTransferService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes draft transfers", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)

		require.NoError(t, f.service.Delete(ctx, created.ID))

		_, err := f.service.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("refuses to delete submitted transfers", func(t *testing.T) {
		f := newServiceFixture()
		created := f.createTransfer(t)
		serialManaged := false
		_, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
			ItemCode: "BULK-001", Description: "Bulk Part", UnitOfMeasure: "kg",
			Quantity: decimal.NewFromInt(1), SerialManaged: &serialManaged,
		})
		require.NoError(t, err)
		_, err = f.service.Transition(ctx, created.ID, TransitionRequest{Target: transfer.TransferStatusPendingQC})
		require.NoError(t, err)

		err = f.service.Delete(ctx, created.ID)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reject the transfer")
	})
}

func TestTransferService_GroupedView(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	created := f.createTransfer(t)
	serialManaged := true
	resp, err := f.service.AddLine(ctx, created.ID, AddLineRequest{
		ItemCode: "WIDGET-001", Description: "Widget A", UnitOfMeasure: "pcs",
		Quantity: decimal.NewFromInt(5), SerialManaged: &serialManaged,
	})
	require.NoError(t, err)
	for _, itemID := range []uuid.UUID{resp.Items[0].ID, resp.Items[1].ID, resp.Items[2].ID} {
		_, err = f.service.RecordScan(ctx, created.ID, itemID, "SN-"+itemID.String()[:8])
		require.NoError(t, err)
	}

	groups, err := f.service.GroupedView(ctx, created.ID)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 5, groups[0].LineCount)
	assert.True(t, groups[0].ScannedQuantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "partial", groups[0].Status)
}

func TestKeyedMutex_SerializesPerTransfer(t *testing.T) {
	km := newKeyedMutex()
	id := uuid.New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock(id)
			defer km.Unlock(id)
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}
