package audit

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SectionScore is the aggregated result of one section
type SectionScore struct {
	Earned             decimal.Decimal
	Max                decimal.Decimal
	Percentage         *decimal.Decimal
	AnsweredCount      int
	UnansweredCount    int
	NotApplicableCount int
	InvalidCount       int
	Verdict            Verdict
}

// IsDefined returns true when at least one item counted toward the maximum
func (s SectionScore) IsDefined() bool {
	return s.Percentage != nil
}

// Section groups the checklist items of one audit area
type Section struct {
	ID       uuid.UUID
	Number   int
	Title    string
	Category string
	Items    []*ChecklistItem
	Score    SectionScore
}

// NewSection creates a section with unanswered items from a template
func NewSection(t SectionTemplate) *Section {
	s := &Section{
		ID:       uuid.New(),
		Number:   t.Number,
		Title:    t.Title,
		Category: t.Category,
		Items:    make([]*ChecklistItem, 0, len(t.Questions)),
	}
	for idx, q := range t.Questions {
		s.Items = append(s.Items, NewChecklistItem(t.Number, q, idx+1))
	}
	return s
}

// AggregateSection evaluates every item and sums the results.
// Invalid items are counted but excluded from both earned and max.
// The verdict is left NotRated; the audit aggregator judges sections.
func AggregateSection(items []*ChecklistItem, policy UnsetChoicePolicy) SectionScore {
	score := SectionScore{
		Earned:  decimal.Zero,
		Max:     decimal.Zero,
		Verdict: VerdictNotRated,
	}
	for _, item := range items {
		v := item.Evaluate(policy)
		switch v.State {
		case ValueInvalid:
			score.InvalidCount++
			continue
		case ValueNotApplicable:
			score.NotApplicableCount++
		case ValueUnanswered:
			score.UnansweredCount++
		case ValueScored:
			score.AnsweredCount++
		}
		score.Earned = score.Earned.Add(v.Earned)
		score.Max = score.Max.Add(v.Max)
	}
	score.Percentage = Percentage(score.Earned, score.Max)
	return score
}

// Recalculate refreshes the section score from its items
func (s *Section) Recalculate(policy UnsetChoicePolicy) SectionScore {
	s.Score = AggregateSection(s.Items, policy)
	return s.Score
}

// Item returns the item with id, or nil
func (s *Section) Item(id uuid.UUID) *ChecklistItem {
	for _, item := range s.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// SectionSnapshot is the persisted header and score of one audit section
type SectionSnapshot struct {
	ID       uuid.UUID
	Number   int
	Title    string
	Category string
	Score    SectionScore
}

// Snapshot returns the persisted view of the section
func (s *Section) Snapshot() SectionSnapshot {
	return SectionSnapshot{ID: s.ID, Number: s.Number, Title: s.Title, Category: s.Category, Score: s.Score}
}

// AssembleSections rebuilds ordered sections from snapshots and a flat item list.
// Snapshot scores are carried over; items whose section has no snapshot get an
// untitled section.
func AssembleSections(snapshots []SectionSnapshot, items []*ChecklistItem) []*Section {
	byNumber := make(map[int]*Section, len(snapshots))
	for _, snap := range snapshots {
		byNumber[snap.Number] = &Section{
			ID:       snap.ID,
			Number:   snap.Number,
			Title:    snap.Title,
			Category: snap.Category,
			Score:    snap.Score,
		}
	}
	for _, item := range items {
		s, ok := byNumber[item.SectionNumber]
		if !ok {
			s = &Section{Number: item.SectionNumber, Score: SectionScore{Verdict: VerdictNotRated}}
			byNumber[item.SectionNumber] = s
		}
		s.Items = append(s.Items, item)
	}

	sections := make([]*Section, 0, len(byNumber))
	for _, s := range byNumber {
		sortItems(s.Items)
		sections = append(sections, s)
	}
	sort.Slice(sections, func(a, b int) bool { return sections[a].Number < sections[b].Number })
	return sections
}

func sortItems(items []*ChecklistItem) {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].SortOrder != items[b].SortOrder {
			return items[a].SortOrder < items[b].SortOrder
		}
		return CompareReference(items[a].Reference, items[b].Reference) < 0
	})
}
