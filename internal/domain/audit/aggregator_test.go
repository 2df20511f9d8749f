package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredSection(number int, category string, items ...*ChecklistItem) *Section {
	s := &Section{Number: number, Title: "Section", Category: category, Items: items}
	s.Recalculate(UnsetScoreZero)
	return s
}

func TestAggregate_WeightedGlobal(t *testing.T) {
	sections := []*Section{
		// 4 of 6
		scoredSection(1, "Food", newItem("1.1", "4", ChoiceYes), newItem("1.2", "2", ChoiceNo)),
		// 1 of 2
		scoredSection(2, "Food", newItem("2.1", "2", ChoicePartially)),
	}

	score := Aggregate(sections, StrategyWeightedGlobal, DefaultThresholds())

	assert.Equal(t, StrategyWeightedGlobal, score.Strategy)
	assert.True(t, score.Earned.Equal(dec("5")))
	assert.True(t, score.Max.Equal(dec("8")))
	require.NotNil(t, score.Percentage)
	assert.Equal(t, "62.50", score.Percentage.StringFixed(2))
	assert.Equal(t, VerdictFail, score.Verdict)
}

func TestAggregate_SectionAverage(t *testing.T) {
	sections := []*Section{
		scoredSection(1, "", newItem("1.1", "4", ChoiceYes), newItem("1.2", "2", ChoiceNo)),
		scoredSection(2, "", newItem("2.1", "2", ChoicePartially)),
	}

	score := Aggregate(sections, StrategySectionAverage, DefaultThresholds())

	// (66.666... + 50) / 2
	assert.Equal(t, "58.33", score.Percentage.StringFixed(2))
}

func fixedSection(number int, earned, max string) *Section {
	score := SectionScore{Earned: dec(earned), Max: dec(max)}
	score.Percentage = Percentage(score.Earned, score.Max)
	return &Section{Number: number, Title: "Section", Score: score}
}

func TestAggregate_SectionAverageRoundsOnce(t *testing.T) {
	sections := []*Section{
		fixedSection(1, "10.0049", "100"),
		fixedSection(2, "10.0049", "100"),
		fixedSection(3, "10.0149", "100"),
	}

	score := Aggregate(sections, StrategySectionAverage, DefaultThresholds())

	// section figures display as 10.00, 10.00 and 10.01; the exact mean is 10.00823...
	assert.Equal(t, "10.00", score.Sections[0].Score.Percentage.StringFixed(2))
	assert.Equal(t, "10.01", score.Percentage.StringFixed(2))
}

func TestAggregate_UndefinedSectionsExcluded(t *testing.T) {
	for _, strategy := range []Strategy{StrategyWeightedGlobal, StrategySectionAverage} {
		t.Run(string(strategy), func(t *testing.T) {
			sections := []*Section{
				scoredSection(1, "", newItem("1.1", "2", ChoiceYes)),
				scoredSection(2, "", newItem("2.1", "2", ChoiceNotApplicable)),
			}

			score := Aggregate(sections, strategy, DefaultThresholds())

			assert.Equal(t, "100.00", score.Percentage.StringFixed(2))
			assert.Equal(t, VerdictPass, score.Verdict)
			require.Len(t, score.Sections, 2)
			assert.Equal(t, VerdictNotRated, score.Sections[1].Score.Verdict)
		})
	}
}

func TestAggregate_NoDefinedSectionIsNotRated(t *testing.T) {
	sections := []*Section{
		scoredSection(1, "", newItem("1.1", "2", ChoiceNotApplicable)),
	}

	score := Aggregate(sections, StrategyWeightedGlobal, DefaultThresholds())

	assert.Nil(t, score.Percentage)
	assert.Equal(t, VerdictNotRated, score.Verdict)
}

func TestAggregate_ThresholdIsInclusive(t *testing.T) {
	thresholds := DefaultThresholds()
	thresholds.Overall = dec("50")
	sections := []*Section{scoredSection(1, "", newItem("1.1", "2", ChoicePartially))}

	score := Aggregate(sections, StrategyWeightedGlobal, thresholds)

	assert.Equal(t, VerdictPass, score.Verdict)
}

func TestAggregate_SectionAndCategoryVerdicts(t *testing.T) {
	thresholds := Thresholds{Overall: dec("83"), Section: dec("60"), Category: dec("75")}
	sections := []*Section{
		scoredSection(1, "Food", newItem("1.1", "4", ChoiceYes), newItem("1.2", "2", ChoiceNo)),
		scoredSection(2, "Facility", newItem("2.1", "2", ChoiceYes)),
		scoredSection(3, "Food", newItem("3.1", "2", ChoiceYes)),
	}

	score := Aggregate(sections, StrategyWeightedGlobal, thresholds)
	ApplyVerdicts(sections, score)

	assert.Equal(t, VerdictPass, score.Sections[0].Score.Verdict)
	assert.Equal(t, VerdictPass, sections[0].Score.Verdict)

	require.Len(t, score.Categories, 2)
	assert.Equal(t, "Food", score.Categories[0].Category)
	// 6 of 8
	assert.Equal(t, "75.00", score.Categories[0].Percentage.StringFixed(2))
	assert.Equal(t, VerdictPass, score.Categories[0].Verdict)
	assert.Equal(t, "Facility", score.Categories[1].Category)
}

func TestAggregate_UnknownStrategyFallsBackToWeighted(t *testing.T) {
	sections := []*Section{scoredSection(1, "", newItem("1.1", "2", ChoiceYes))}
	score := Aggregate(sections, Strategy("median"), DefaultThresholds())
	assert.Equal(t, StrategyWeightedGlobal, score.Strategy)
}
