package templates

import (
	"fmt"
	"time"

	"github.com/jjenkins/regwatch/internal/model"
)

func comparisonTitle(r *model.Report) string {
	return fmt.Sprintf("%s: last %d days", r.Agency, r.Current.Days())
}

func historyHeading(agency string) string {
	if agency == "" {
		return "Report history"
	}
	return "Report history for " + agency
}

func windowLabel(start, end time.Time) string {
	return start.Format(model.DateLayout) + " to " + end.Format(model.DateLayout)
}

// changeSign is pos, neg or zero
func changeSign(n int) string {
	switch {
	case n > 0:
		return "pos"
	case n < 0:
		return "neg"
	}
	return "zero"
}

func signed(n int) string {
	return fmt.Sprintf("%+d", n)
}

func countTotal(counts map[model.DocType]int) int {
	total := 0
	for _, t := range model.DocTypes {
		total += counts[t]
	}
	return total
}

func idSet(docs []model.RegulationDocument) map[string]bool {
	ids := make(map[string]bool, len(docs))
	for _, d := range docs {
		ids[d.DocumentID] = true
	}
	return ids
}

func currentCounts(r *model.ReportSummary) map[model.DocType]int {
	return map[model.DocType]int{
		model.DocTypeFinal:    r.CurrentFinal,
		model.DocTypeProposed: r.CurrentProp,
		model.DocTypeOther:    r.CurrentOther,
	}
}

func previousCounts(r *model.ReportSummary) map[model.DocType]int {
	return map[model.DocType]int{
		model.DocTypeFinal:    r.PreviousFinal,
		model.DocTypeProposed: r.PreviousProp,
		model.DocTypeOther:    r.PreviousOther,
	}
}

// storedDocuments splits a saved report's documents by window
type storedDocuments struct {
	current  []model.RegulationDocument
	previous []model.RegulationDocument
	isNew    map[string]bool
}

func splitStored(docs []model.StoredDocument) storedDocuments {
	split := storedDocuments{isNew: make(map[string]bool)}
	for _, d := range docs {
		if d.Window == "previous" {
			split.previous = append(split.previous, d.RegulationDocument)
			continue
		}
		split.current = append(split.current, d.RegulationDocument)
		if d.IsNew {
			split.isNew[d.DocumentID] = true
		}
	}
	return split
}
