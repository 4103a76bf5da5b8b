package service

import (
	"github.com/jjenkins/regwatch/internal/model"
)

// Compare builds the period comparison between the current and previous windows.
// Novelty is identity only: a document whose id appears in previous is never new,
// even if its type or title changed. NewDocuments keeps the order of current.
func Compare(current, previous []model.RegulationDocument) model.PeriodComparison {
	previousIDs := make(map[string]struct{}, len(previous))
	for _, d := range previous {
		previousIDs[d.DocumentID] = struct{}{}
	}

	newDocs := make([]model.RegulationDocument, 0)
	emitted := make(map[string]struct{})
	for _, d := range current {
		if _, ok := previousIDs[d.DocumentID]; ok {
			continue
		}
		if _, ok := emitted[d.DocumentID]; ok {
			continue
		}
		emitted[d.DocumentID] = struct{}{}
		newDocs = append(newDocs, d)
	}

	return model.PeriodComparison{
		CurrentCounts:  CountByType(current),
		PreviousCounts: CountByType(previous),
		NetChange:      len(current) - len(previous),
		NewDocuments:   newDocs,
	}
}

// CountByType tallies documents per category, always reporting every category
func CountByType(docs []model.RegulationDocument) map[model.DocType]int {
	counts := make(map[model.DocType]int, len(model.DocTypes))
	for _, t := range model.DocTypes {
		counts[t] = 0
	}
	for _, d := range docs {
		counts[model.ParseDocType(string(d.DocType))]++
	}
	return counts
}
