package audit

import (
	"sort"

	"github.com/google/uuid"
)

// Finding is a derived, reportable view of a checklist item. It is never persisted.
type Finding struct {
	ItemID           uuid.UUID
	SectionNumber    int
	SectionTitle     string
	Reference        string
	Title            string
	Selected         Choice
	FindingText      string
	CorrectiveAction string
	Priority         Priority
	Departments      []string
	HasPicture       bool
	Escalate         bool
}

// SectionLabel renders "<number>. <title>", or just the number when untitled
func (f Finding) SectionLabel() string {
	return sectionLabel(f.SectionNumber, f.SectionTitle)
}

// InDepartment reports whether the finding is assigned to department
func (f Finding) InDepartment(department string) bool {
	for _, d := range f.Departments {
		if MatchesDepartment(d, department) {
			return true
		}
	}
	return false
}

// ExtractFindings returns the action plan for sections in deterministic order:
// priority rank, then section number, then numeric reference.
func ExtractFindings(sections []*Section) []Finding {
	findings := make([]Finding, 0)
	for _, s := range sections {
		for _, item := range s.Items {
			if !item.IsFinding() {
				continue
			}
			findings = append(findings, Finding{
				ItemID:           item.ID,
				SectionNumber:    s.Number,
				SectionTitle:     s.Title,
				Reference:        item.Reference,
				Title:            item.Title,
				Selected:         item.Selected,
				FindingText:      item.FindingText,
				CorrectiveAction: item.CorrectiveAction,
				Priority:         item.Priority,
				Departments:      SplitDepartments(item.Departments),
				HasPicture:       item.HasPicture,
				Escalate:         item.Escalate,
			})
		}
	}
	SortFindings(findings)
	return findings
}

// SortFindings sorts findings in place in action plan order
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.SectionNumber != b.SectionNumber {
			return a.SectionNumber < b.SectionNumber
		}
		return CompareReference(a.Reference, b.Reference) < 0
	})
}

// FilterByDepartment keeps the findings assigned to department, preserving order.
// An empty department returns every finding.
func FilterByDepartment(findings []Finding, department string) []Finding {
	if department == "" {
		return findings
	}
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.InDepartment(department) {
			out = append(out, f)
		}
	}
	return out
}

// FindingGroup is the findings of one section
type FindingGroup struct {
	SectionNumber int
	SectionLabel  string
	Findings      []Finding
}

// GroupBySection groups findings by section number in ascending order.
// Order within a group follows the input order.
func GroupBySection(findings []Finding) []FindingGroup {
	index := make(map[int]int)
	groups := make([]FindingGroup, 0)
	for _, f := range findings {
		idx, ok := index[f.SectionNumber]
		if !ok {
			idx = len(groups)
			index[f.SectionNumber] = idx
			groups = append(groups, FindingGroup{
				SectionNumber: f.SectionNumber,
				SectionLabel:  f.SectionLabel(),
			})
		}
		groups[idx].Findings = append(groups[idx].Findings, f)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].SectionNumber < groups[j].SectionNumber
	})
	return groups
}
