package models

import (
	"testing"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedItem(ref, weight, choice, priority, domain string) *AuditItemModel {
	return &AuditItemModel{
		ID:            uuid.New(),
		SectionNumber: 1,
		Reference:     ref,
		Weight:        decimal.RequireFromString(weight),
		AnswerDomain:  domain,
		Choice:        choice,
		Priority:      priority,
	}
}

func TestAuditItemModel_ToDomain_Labels(t *testing.T) {
	tests := []struct {
		name         string
		model        *AuditItemModel
		wantChoice   audit.Choice
		wantPriority audit.Priority
		inputError   string
		labelWarning string
	}{
		{
			name:         "clean labels",
			model:        storedItem("1.1", "2", "Yes", "High", ""),
			wantChoice:   audit.ChoiceYes,
			wantPriority: audit.PriorityHigh,
		},
		{
			name:         "unknown priority keeps the choice",
			model:        storedItem("1.1", "4", "YES", "Urgent", ""),
			wantChoice:   audit.ChoiceYes,
			wantPriority: audit.PriorityUnset,
			labelWarning: "Urgent",
		},
		{
			name:         "unknown answer domain falls back",
			model:        storedItem("1.1", "4", "No", "", "Yes,Maybe"),
			wantChoice:   audit.ChoiceNo,
			wantPriority: audit.PriorityUnset,
			labelWarning: "Maybe",
		},
		{
			name:         "unknown choice is an input error",
			model:        storedItem("1.1", "4", "Sometimes", "Low", ""),
			wantChoice:   audit.ChoiceUnset,
			wantPriority: audit.PriorityLow,
			inputError:   "Sometimes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.model.ToDomain()

			assert.Equal(t, tt.wantChoice, item.Selected)
			assert.Equal(t, tt.wantPriority, item.Priority)
			if tt.inputError == "" {
				assert.Empty(t, item.InputError)
			} else {
				assert.Contains(t, item.InputError, tt.inputError)
			}
			if tt.labelWarning == "" {
				assert.Empty(t, item.LabelWarning)
			} else {
				assert.Contains(t, item.LabelWarning, tt.labelWarning)
			}
		})
	}
}

func TestAuditItemModel_ToDomain_BadPriorityStillScores(t *testing.T) {
	section := &audit.Section{
		Number: 1,
		Title:  "Storage",
		Items: []*audit.ChecklistItem{
			storedItem("1.1", "4", "YES", "Urgent", "").ToDomain(),
			storedItem("1.2", "4", "NO", "", "").ToDomain(),
		},
	}

	section.Recalculate(audit.UnsetScoreZero)

	require.NotNil(t, section.Score.Percentage)
	assert.Equal(t, "50.00", section.Score.Percentage.StringFixed(2))
	assert.True(t, decimal.NewFromInt(4).Equal(section.Score.Earned))
	assert.True(t, decimal.NewFromInt(8).Equal(section.Score.Max))
	assert.Equal(t, 0, section.Score.InvalidCount)
}
