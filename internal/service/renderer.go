package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jjenkins/regwatch/internal/model"
)

// DefaultMaxListed is how many documents a text section lists before truncating
const DefaultMaxListed = 10

// Output formats supported by Encode
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RenderText renders a report as plain text with a recent rules section and a change section
func RenderText(report *model.Report, maxListed int) string {
	if maxListed <= 0 {
		maxListed = DefaultMaxListed
	}
	cmp := report.Comparison

	var b strings.Builder
	fmt.Fprintf(&b, "Regulatory change report for %s\n", report.Agency)
	fmt.Fprintf(&b, "Generated %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("== Recent Rules ==\n")
	if len(report.CurrentDocuments) == 0 {
		fmt.Fprintf(&b, "No %s regulations found between %s.\n", report.Agency, report.Current)
	} else {
		for _, t := range model.DocTypes {
			docs := filterByType(report.CurrentDocuments, t)
			if len(docs) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n%s (%d):\n", sectionTitle(t), len(docs))
			writeDocuments(&b, docs, maxListed, "document(s)")
		}
	}

	b.WriteString("\n== Change vs Previous Period ==\n")
	fmt.Fprintf(&b, "Current period:  %s (inclusive)\n", report.Current)
	fmt.Fprintf(&b, "Previous period: %s (inclusive)\n\n", report.Previous)
	fmt.Fprintf(&b, "Current period:  %s\n", countLine(cmp.CurrentCounts))
	fmt.Fprintf(&b, "Previous period: %s\n\n", countLine(cmp.PreviousCounts))
	fmt.Fprintf(&b, "Net change in total docs: %+d\n", cmp.NetChange)
	fmt.Fprintf(&b, "New document(s) in current period that did not appear in the previous period: %d\n", len(cmp.NewDocuments))

	if len(cmp.NewDocuments) > 0 {
		b.WriteString("\nNewly introduced document(s) in the current period:\n")
		writeDocuments(&b, cmp.NewDocuments, maxListed, "new document(s) in the current period")
	} else {
		b.WriteString("\nNo documents in the current period are new relative to the previous period.\n")
	}

	if skipped := report.CurrentSkipped + report.PreviousSkipped; skipped > 0 {
		fmt.Fprintf(&b, "\nNote: %d malformed upstream record(s) were skipped.\n", skipped)
	}

	return b.String()
}

// Encode serializes a report in the requested format
func Encode(report *model.Report, format string, maxListed int) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return []byte(RenderText(report, maxListed)), nil
	case FormatJSON:
		return json.MarshalIndent(report, "", "  ")
	case FormatYAML:
		return yaml.Marshal(report)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func sectionTitle(t model.DocType) string {
	switch t {
	case model.DocTypeFinal:
		return "Final rules"
	case model.DocTypeProposed:
		return "Proposed rules"
	default:
		return "Other documents"
	}
}

func countLine(counts map[model.DocType]int) string {
	total := 0
	for _, c := range counts {
		total += c
	}
	return fmt.Sprintf("%d document(s) (Final rules: %d, Proposed rules: %d, Other: %d)",
		total, counts[model.DocTypeFinal], counts[model.DocTypeProposed], counts[model.DocTypeOther])
}

func writeDocuments(b *strings.Builder, docs []model.RegulationDocument, maxListed int, noun string) {
	for i, d := range docs {
		if i == maxListed {
			fmt.Fprintf(b, "...and %d more %s.\n", len(docs)-maxListed, noun)
			break
		}
		fmt.Fprintf(b, "- [%s] (%s) %s\n  Title: %s\n  URL: %s\n",
			d.PublicationDate.Format(model.DateLayout), d.DocType, d.DocumentID, d.Title, d.URL)
	}
}

func filterByType(docs []model.RegulationDocument, t model.DocType) []model.RegulationDocument {
	var out []model.RegulationDocument
	for _, d := range docs {
		if d.DocType == t {
			out = append(out, d)
		}
	}
	return out
}
