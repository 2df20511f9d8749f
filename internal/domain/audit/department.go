package audit

import "strings"

// SplitDepartments splits a comma-separated department list into trimmed,
// non-empty tokens in their original order.
func SplitDepartments(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchesDepartment reports whether department is one of the tokens in raw.
// Comparison is case-insensitive on whole tokens, so "Maint" does not match "Maintenance".
func MatchesDepartment(raw, department string) bool {
	want := strings.TrimSpace(department)
	if want == "" {
		return false
	}
	for _, token := range SplitDepartments(raw) {
		if strings.EqualFold(token, want) {
			return true
		}
	}
	return false
}
