package audit

import (
	"github.com/shopspring/decimal"
)

// Strategy selects how section results roll up into the overall score
type Strategy string

const (
	// StrategyWeightedGlobal divides total earned by total max across defined sections
	StrategyWeightedGlobal Strategy = "weighted_global"
	// StrategySectionAverage takes the unweighted mean of defined section percentages
	StrategySectionAverage Strategy = "section_average"
)

// IsValid checks if the strategy is known
func (s Strategy) IsValid() bool {
	return s == StrategyWeightedGlobal || s == StrategySectionAverage
}

// SectionResult is the judged score of one section
type SectionResult struct {
	Number   int
	Title    string
	Category string
	Score    SectionScore
}

// CategoryScore is the rollup of all sections sharing a category
type CategoryScore struct {
	Category   string
	Earned     decimal.Decimal
	Max        decimal.Decimal
	Percentage *decimal.Decimal
	Verdict    Verdict
}

// AuditScore is the overall rollup of an audit
type AuditScore struct {
	Strategy   Strategy
	Earned     decimal.Decimal
	Max        decimal.Decimal
	Percentage *decimal.Decimal
	Verdict    Verdict
	Sections   []SectionResult
	Categories []CategoryScore
}

// Aggregate rolls section scores into an audit score and judges every level.
// Sections with an undefined percentage are excluded from the overall figure
// under both strategies. With no defined section the audit is NotRated.
// section_average works on unrounded section ratios and rounds once.
func Aggregate(sections []*Section, strategy Strategy, thresholds Thresholds) AuditScore {
	if !strategy.IsValid() {
		strategy = StrategyWeightedGlobal
	}
	result := AuditScore{
		Strategy: strategy,
		Earned:   decimal.Zero,
		Max:      decimal.Zero,
		Sections: make([]SectionResult, 0, len(sections)),
	}

	pctSum := decimal.Zero
	defined := 0
	categories := make([]CategoryScore, 0)
	categoryIndex := make(map[string]int)

	for _, s := range sections {
		score := s.Score
		score.Verdict = Judge(score.Percentage, thresholds.Section)
		result.Sections = append(result.Sections, SectionResult{
			Number:   s.Number,
			Title:    s.Title,
			Category: s.Category,
			Score:    score,
		})

		if s.Category != "" {
			idx, ok := categoryIndex[s.Category]
			if !ok {
				idx = len(categories)
				categoryIndex[s.Category] = idx
				categories = append(categories, CategoryScore{
					Category: s.Category,
					Earned:   decimal.Zero,
					Max:      decimal.Zero,
				})
			}
			if score.IsDefined() {
				categories[idx].Earned = categories[idx].Earned.Add(score.Earned)
				categories[idx].Max = categories[idx].Max.Add(score.Max)
			}
		}

		if !score.IsDefined() {
			continue
		}
		defined++
		result.Earned = result.Earned.Add(score.Earned)
		result.Max = result.Max.Add(score.Max)
		pctSum = pctSum.Add(score.Earned.Div(score.Max).Mul(hundred))
	}

	switch {
	case defined == 0:
		result.Percentage = nil
	case strategy == StrategySectionAverage:
		avg := pctSum.Div(decimal.NewFromInt(int64(defined))).Round(2)
		result.Percentage = &avg
	default:
		result.Percentage = Percentage(result.Earned, result.Max)
	}
	result.Verdict = Judge(result.Percentage, thresholds.Overall)

	for i := range categories {
		categories[i].Percentage = Percentage(categories[i].Earned, categories[i].Max)
		categories[i].Verdict = Judge(categories[i].Percentage, thresholds.Category)
	}
	result.Categories = categories
	return result
}

// ApplyVerdicts copies section verdicts from score back onto the sections
func ApplyVerdicts(sections []*Section, score AuditScore) {
	byNumber := make(map[int]Verdict, len(score.Sections))
	for _, r := range score.Sections {
		byNumber[r.Number] = r.Score.Verdict
	}
	for _, s := range sections {
		if v, ok := byNumber[s.Number]; ok {
			s.Score.Verdict = v
		}
	}
}
