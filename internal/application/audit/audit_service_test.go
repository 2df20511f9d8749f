package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *audit.Schema {
	t.Helper()
	schema, err := audit.NewSchema("Restaurant hygiene", "fsa", []audit.SectionTemplate{
		{Number: 1, Title: "Personal hygiene", Category: "Food", Questions: []audit.QuestionTemplate{
			{Reference: "1.1", Title: "Hand wash stations stocked", Weight: decimal.NewFromInt(4)},
			{Reference: "1.2", Title: "Glove policy", Weight: decimal.NewFromInt(2)},
		}},
	})
	require.NoError(t, err)
	return schema
}

func testAudit(t *testing.T, schema *audit.Schema) *audit.Audit {
	t.Helper()
	a, err := audit.NewAudit(schema, uuid.New(), "Store 12", "C1",
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "FSA-202403-0001")
	require.NoError(t, err)
	return a
}

func itemID(a *audit.Audit, ref string) uuid.UUID {
	for _, item := range a.Items() {
		if item.Reference == ref {
			return item.ID
		}
	}
	return uuid.Nil
}

type serviceFixture struct {
	repo       *MockAuditRepository
	schemas    *MockSchemaRepository
	thresholds *MockThresholdProvider
	evidence   *MockEvidenceIndex
	svc        *AuditService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:       new(MockAuditRepository),
		schemas:    new(MockSchemaRepository),
		thresholds: new(MockThresholdProvider),
		evidence:   new(MockEvidenceIndex),
	}
	f.svc = NewAuditService(f.repo, f.schemas, f.thresholds,
		WithEvidenceIndex(f.evidence),
		WithClock(func() time.Time { return time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC) }))
	return f
}

// stored registers a for loading together with its schema
func (f *serviceFixture) stored(a *audit.Audit, schema *audit.Schema) {
	f.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	f.schemas.On("FindByID", mock.Anything, schema.ID).Return(schema, nil)
	f.thresholds.On("GetThresholds", mock.Anything, schema.ID).Return(audit.DefaultThresholds()).Maybe()
}

func TestAuditService_Create(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	f.schemas.On("FindByID", mock.Anything, schema.ID).Return(schema, nil)
	f.repo.On("NextSequence", mock.Anything, "FSA-202403").Return(7, nil)
	f.repo.On("Save", mock.Anything, mock.AnythingOfType("*audit.Audit")).Return(nil)

	resp, err := f.svc.Create(context.Background(), CreateAuditRequest{
		SchemaID:  schema.ID,
		StoreID:   uuid.New(),
		StoreName: "Store 12",
		Cycle:     "C1",
		AuditDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Auditor:   " J. Smith ",
	})
	require.NoError(t, err)

	assert.Equal(t, "FSA-202403-0007", resp.DocumentNumber)
	assert.Equal(t, "DRAFT", resp.Status)
	assert.Equal(t, "J. Smith", resp.Auditor)
	require.Len(t, resp.Sections, 1)
	require.Len(t, resp.Sections[0].Items, 2)
	assert.Equal(t, []string{"Yes", "Partially", "No", "NA"}, resp.Sections[0].Items[0].AnswerDomain)
	// unanswered items score zero against their full weight
	assert.Equal(t, "0.00%", resp.Display)
	f.repo.AssertExpectations(t)
}

func TestAuditService_Create_SchemaNotFound(t *testing.T) {
	f := newServiceFixture()
	id := uuid.New()
	f.schemas.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("schema not found"))

	_, err := f.svc.Create(context.Background(), CreateAuditRequest{
		SchemaID:  id,
		StoreID:   uuid.New(),
		Cycle:     "C1",
		AuditDate: time.Now(),
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.repo.AssertNotCalled(t, "NextSequence", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuditService_Create_SequenceFailure(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	f.schemas.On("FindByID", mock.Anything, schema.ID).Return(schema, nil)
	f.repo.On("NextSequence", mock.Anything, mock.Anything).Return(0, errors.New("deadlock"))

	_, err := f.svc.Create(context.Background(), CreateAuditRequest{
		SchemaID:  schema.ID,
		StoreID:   uuid.New(),
		Cycle:     "C1",
		AuditDate: time.Now(),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "allocate document number")
}

func TestAuditService_SaveAnswers(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	a := testAudit(t, schema)
	f.stored(a, schema)
	f.repo.On("Save", mock.Anything, a).Return(nil)

	bad := itemID(a, "1.2")
	resp, err := f.svc.SaveAnswers(context.Background(), a.ID, SaveAnswersRequest{Answers: []AnswerRequest{
		{ItemID: itemID(a, "1.1"), Choice: "yes"},
		{ItemID: bad, Choice: "Maybe"},
	}})
	require.NoError(t, err)

	assert.Equal(t, "IN_PROGRESS", resp.Audit.Status)
	assert.Equal(t, "66.67%", resp.Audit.Display)
	assert.Equal(t, "FAIL", resp.Audit.Verdict)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, bad, resp.Rejected[0].ItemID)
	assert.Contains(t, resp.Rejected[0].Message, "Maybe")
	f.repo.AssertCalled(t, "Save", mock.Anything, a)
}

func TestAuditService_SaveAnswers_Completed(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	a := testAudit(t, schema)
	require.NoError(t, a.Start())
	require.NoError(t, a.Complete(schema.ScoringPolicy(audit.DefaultThresholds())))
	f.stored(a, schema)

	_, err := f.svc.SaveAnswers(context.Background(), a.ID, SaveAnswersRequest{Answers: []AnswerRequest{
		{ItemID: itemID(a, "1.1"), Choice: "Yes"},
	}})

	assert.ErrorIs(t, err, shared.ErrInvalidState)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuditService_Lifecycle(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	a := testAudit(t, schema)
	f.stored(a, schema)
	f.repo.On("Save", mock.Anything, a).Return(nil)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", started.Status)

	_, err = f.svc.SaveAnswers(ctx, a.ID, SaveAnswersRequest{Answers: []AnswerRequest{
		{ItemID: itemID(a, "1.1"), Choice: "Yes"},
		{ItemID: itemID(a, "1.2"), Choice: "Yes"},
	}})
	require.NoError(t, err)

	completed, err := f.svc.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", completed.Status)
	assert.Equal(t, "100.00%", completed.Display)
	assert.Equal(t, "PASS", completed.Verdict)
	assert.NotNil(t, completed.CompletedAt)

	_, err = f.svc.Complete(ctx, a.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	reopened, err := f.svc.Reopen(ctx, a.ID, ReopenAuditRequest{Reason: "Wrong store"})
	require.NoError(t, err)
	assert.Equal(t, "REOPENED", reopened.Status)
	assert.Equal(t, "Wrong store", reopened.ReopenReason)

	restarted, err := f.svc.Start(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", restarted.Status)
}

func TestAuditService_Reopen_RequiresReason(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	a := testAudit(t, schema)
	require.NoError(t, a.Start())
	require.NoError(t, a.Complete(schema.ScoringPolicy(audit.DefaultThresholds())))
	f.stored(a, schema)

	_, err := f.svc.Reopen(context.Background(), a.ID, ReopenAuditRequest{Reason: "  "})

	assert.ErrorIs(t, err, shared.ErrValidation)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuditService_Start_InvalidState(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	a := testAudit(t, schema)
	require.NoError(t, a.Start())
	f.stored(a, schema)

	_, err := f.svc.Start(context.Background(), a.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestAuditService_RegisterEvidence(t *testing.T) {
	f := newServiceFixture()
	schema := testSchema(t)
	a := testAudit(t, schema)
	f.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	f.evidence.On("Save", mock.Anything, mock.AnythingOfType("*audit.EvidenceRef")).Return(nil)

	item := itemID(a, "1.2")
	resp, err := f.svc.RegisterEvidence(context.Background(), a.ID, item, RegisterEvidenceRequest{
		Tag:         "before",
		ContentType: "image/jpeg",
		StorageKey:  " audits/1/glove.jpg ",
		FileName:    "glove.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, item, resp.ItemID)
	assert.Equal(t, "ISSUE", resp.Tag)
	assert.Equal(t, "audits/1/glove.jpg", resp.StorageKey)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), resp.CreatedAt)
	f.evidence.AssertExpectations(t)
}

func TestAuditService_RegisterEvidence_Errors(t *testing.T) {
	schema := testSchema(t)
	a := testAudit(t, schema)

	tests := []struct {
		name    string
		itemID  uuid.UUID
		req     RegisterEvidenceRequest
		wantErr error
	}{
		{
			name:    "unknown tag",
			itemID:  itemID(a, "1.1"),
			req:     RegisterEvidenceRequest{Tag: "selfie", StorageKey: "k"},
			wantErr: shared.ErrValidation,
		},
		{
			name:    "blank key",
			itemID:  itemID(a, "1.1"),
			req:     RegisterEvidenceRequest{Tag: "GOOD", StorageKey: " "},
			wantErr: shared.ErrValidation,
		},
		{
			name:    "item from another audit",
			itemID:  uuid.New(),
			req:     RegisterEvidenceRequest{Tag: "GOOD", StorageKey: "k"},
			wantErr: shared.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			f.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil).Maybe()

			_, err := f.svc.RegisterEvidence(context.Background(), a.ID, tt.itemID, tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			f.evidence.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestAuditService_RegisterEvidence_Disabled(t *testing.T) {
	svc := NewAuditService(new(MockAuditRepository), new(MockSchemaRepository), new(MockThresholdProvider))

	_, err := svc.RegisterEvidence(context.Background(), uuid.New(), uuid.New(),
		RegisterEvidenceRequest{Tag: "GOOD", StorageKey: "k"})

	assert.ErrorIs(t, err, shared.ErrInvalidState)
}
