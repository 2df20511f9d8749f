package persistence

import (
	"testing"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory SQLite database with every table migrated.
// A single connection keeps the in-memory database alive for the whole test.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(AllModels()...))
	return db
}

func question(ref string, weight int64, departments string) audit.QuestionTemplate {
	return audit.QuestionTemplate{
		Reference:    ref,
		Title:        "Question " + ref,
		Weight:       decimal.NewFromInt(weight),
		AnswerDomain: audit.DefaultAnswerDomain(),
		Departments:  departments,
	}
}

func newTestSchema(t *testing.T) *audit.Schema {
	s, err := audit.NewSchema("Food safety", "fsa", []audit.SectionTemplate{
		{
			Number:   1,
			Title:    "Personal hygiene",
			Category: "Food",
			Questions: []audit.QuestionTemplate{
				question("1.1", 4, ""),
				question("1.2", 2, "Procurement, Maintenance"),
				question("1.3", 2, ""),
			},
		},
		{
			Number:    2,
			Title:     "Cold storage",
			Category:  "Facility",
			Questions: []audit.QuestionTemplate{question("2.1", 4, "Maintenance")},
		},
	})
	require.NoError(t, err)
	return s
}

func newTestAudit(t *testing.T, s *audit.Schema, storeID uuid.UUID, cycle string, date time.Time, doc string) *audit.Audit {
	a, err := audit.NewAudit(s, storeID, "Store 12", cycle, date, doc)
	require.NoError(t, err)
	return a
}

func answer(t *testing.T, a *audit.Audit, s *audit.Schema, answers map[string]string) {
	var list []audit.Answer
	for _, item := range a.Items() {
		if choice, ok := answers[item.Reference]; ok {
			list = append(list, audit.Answer{ItemID: item.ID, Choice: choice})
		}
	}
	rejected, err := a.SaveAnswers(list, s.ScoringPolicy(s.Thresholds))
	require.NoError(t, err)
	require.Empty(t, rejected)
}

func itemByRef(a *audit.Audit, ref string) *audit.ChecklistItem {
	for _, item := range a.Items() {
		if item.Reference == ref {
			return item
		}
	}
	return nil
}
