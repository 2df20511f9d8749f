package audit

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoricalRecord is a read-only summary of a prior Completed audit
type HistoricalRecord struct {
	AuditID            uuid.UUID
	DocumentNumber     string
	Cycle              string
	AuditDate          time.Time
	CreatedAt          time.Time
	OverallPercentage  *decimal.Decimal
	SectionPercentages map[int]*decimal.Decimal
}

// SectionPercentage returns the stored percentage of a section, if any
func (r HistoricalRecord) SectionPercentage(number int) (*decimal.Decimal, bool) {
	pct, ok := r.SectionPercentages[number]
	if !ok || pct == nil {
		return nil, false
	}
	return pct, true
}

// CycleMatches reports whether a stored cycle label satisfies a requested one.
// Matching is case-insensitive and tolerant of decorations like "C1 (Jan/Feb)",
// but the requested label must end on a token boundary, so "C1" does not match "C10".
func CycleMatches(stored, requested string) bool {
	s := strings.ToUpper(strings.TrimSpace(stored))
	r := strings.ToUpper(strings.TrimSpace(requested))
	if r == "" || s == "" {
		return false
	}

	for offset := 0; offset+len(r) <= len(s); {
		idx := strings.Index(s[offset:], r)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(r)
		if isBoundary(s, start-1) && isBoundary(s, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isBoundary(s string, pos int) bool {
	if pos < 0 || pos >= len(s) {
		return true
	}
	r := rune(s[pos])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// SortHistory orders records by audit date descending, then created at descending
func SortHistory(records []HistoricalRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].AuditDate.Equal(records[j].AuditDate) {
			return records[i].AuditDate.After(records[j].AuditDate)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// SelectForCycle picks the record for a cycle among records, skipping
// excludeID. When several match, the most recently created wins.
func SelectForCycle(records []HistoricalRecord, cycle string, excludeID uuid.UUID) (HistoricalRecord, bool) {
	var (
		best  HistoricalRecord
		found bool
	)
	for _, rec := range records {
		if rec.AuditID == excludeID {
			continue
		}
		if !CycleMatches(rec.Cycle, cycle) {
			continue
		}
		if !found || newerThan(rec, best) {
			best = rec
			found = true
		}
	}
	return best, found
}

func newerThan(a, b HistoricalRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if !a.AuditDate.Equal(b.AuditDate) {
		return a.AuditDate.After(b.AuditDate)
	}
	return a.DocumentNumber > b.DocumentNumber
}
