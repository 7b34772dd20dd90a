package models

import "math"

// ScoreSource yields the answers that feed a category percentage.
type ScoreSource interface {
	Values() []string
	Kind() string
}

// DynamicChecklist scores the per-evaluation checklist rows of one category.
type DynamicChecklist struct {
	Items []EvaluationChecklistItem
}

// Values returns the answers of the checklist rows.
func (d DynamicChecklist) Values() []string {
	values := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		values = append(values, item.Value)
	}
	return values
}

// Kind names the source.
func (DynamicChecklist) Kind() string { return "dynamic" }

// LegacyColumns scores the fixed answer columns of one category.
type LegacyColumns struct {
	Columns []string
}

// Values returns the legacy answers.
func (l LegacyColumns) Values() []string { return l.Columns }

// Kind names the source.
func (LegacyColumns) Kind() string { return "legacy" }

// SourceFor picks the score source for a category. Checklist rows win whenever at least one
// exists in the category; the legacy columns are only consulted otherwise.
func SourceFor(evaluation Evaluation, category string) ScoreSource {
	items := make([]EvaluationChecklistItem, 0)
	for _, item := range evaluation.ChecklistItems {
		if item.Category == category {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		return DynamicChecklist{Items: items}
	}
	return LegacyColumns{Columns: evaluation.Legacy.Values(category)}
}

// Percentage computes the share of "Sim" answers among applicable answers, rounded to one
// decimal with ties to even. Unset and "Não se aplica" answers are excluded from the
// denominator; no applicable answers yields 0.
func Percentage(source ScoreSource) float64 {
	applicable := 0
	yes := 0
	for _, value := range source.Values() {
		if value == "" || value == AnswerNotApplicable {
			continue
		}
		applicable++
		if value == AnswerYes {
			yes++
		}
	}
	if applicable == 0 {
		return 0
	}
	return math.RoundToEven(float64(yes)/float64(applicable)*1000) / 10
}

// Score computes the percentage for a category of an evaluation.
func Score(evaluation Evaluation, category string) float64 {
	return Percentage(SourceFor(evaluation, category))
}
