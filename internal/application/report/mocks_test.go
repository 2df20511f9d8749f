package report

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) FindByID(ctx context.Context, id uuid.UUID) (*audit.Audit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Audit), args.Error(1)
}

func (m *MockAuditRepository) FindHeader(ctx context.Context, id uuid.UUID) (*audit.Audit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Audit), args.Error(1)
}

func (m *MockAuditRepository) FindItems(ctx context.Context, auditID uuid.UUID) ([]*audit.ChecklistItem, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.ChecklistItem), args.Error(1)
}

func (m *MockAuditRepository) FindSectionSnapshots(ctx context.Context, auditID uuid.UUID) ([]audit.SectionSnapshot, error) {
	args := m.Called(ctx, auditID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.SectionSnapshot), args.Error(1)
}

func (m *MockAuditRepository) FindCompletedByStore(ctx context.Context, storeID, schemaID, excludeID uuid.UUID) ([]audit.HistoricalRecord, error) {
	args := m.Called(ctx, storeID, schemaID, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.HistoricalRecord), args.Error(1)
}

func (m *MockAuditRepository) Save(ctx context.Context, a *audit.Audit) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAuditRepository) NextSequence(ctx context.Context, period string) (int, error) {
	args := m.Called(ctx, period)
	return args.Int(0), args.Error(1)
}

var _ audit.Repository = (*MockAuditRepository)(nil)

// MockSchemaRepository is a mock implementation of audit.SchemaRepository
type MockSchemaRepository struct {
	mock.Mock
}

func (m *MockSchemaRepository) FindByID(ctx context.Context, id uuid.UUID) (*audit.Schema, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Schema), args.Error(1)
}

func (m *MockSchemaRepository) Save(ctx context.Context, s *audit.Schema) error {
	return m.Called(ctx, s).Error(0)
}

var _ audit.SchemaRepository = (*MockSchemaRepository)(nil)

// MockThresholdProvider is a mock implementation of ThresholdProvider
type MockThresholdProvider struct {
	mock.Mock
}

func (m *MockThresholdProvider) GetThresholds(ctx context.Context, schemaID uuid.UUID) audit.Thresholds {
	return m.Called(ctx, schemaID).Get(0).(audit.Thresholds)
}

var _ ThresholdProvider = (*MockThresholdProvider)(nil)

// MockEvidenceIndex is a mock implementation of audit.EvidenceIndex
type MockEvidenceIndex struct {
	mock.Mock
}

func (m *MockEvidenceIndex) FindByItems(ctx context.Context, itemIDs []uuid.UUID) ([]audit.EvidenceRef, error) {
	args := m.Called(ctx, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.EvidenceRef), args.Error(1)
}

func (m *MockEvidenceIndex) Save(ctx context.Context, ref *audit.EvidenceRef) error {
	return m.Called(ctx, ref).Error(0)
}

var _ audit.EvidenceIndex = (*MockEvidenceIndex)(nil)

// fakeObjectStore serves objects from memory, failing configured keys and
// tracking the peak number of concurrent downloads.
type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failing  map[string]int // remaining failures per key, -1 for always
	calls    map[string]int
	delay    time.Duration
	inFlight int32
	peak     int32
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects: make(map[string][]byte),
		failing: make(map[string]int),
		calls:   make(map[string]int),
	}
}

func (f *fakeObjectStore) put(key string, data []byte) {
	f.objects[key] = data
}

func (f *fakeObjectStore) fail(key string, times int) {
	f.failing[key] = times
}

func (f *fakeObjectStore) callsFor(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeObjectStore) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if remaining, ok := f.failing[key]; ok && remaining != 0 {
		if remaining > 0 {
			f.failing[key] = remaining - 1
		}
		return nil, "", errors.New("object store unavailable")
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return data, "image/jpeg", nil
}

var _ audit.ObjectReader = (*fakeObjectStore)(nil)
