package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ionbatch/internal/outcome"
)

var titleCaser = cases.Title(language.English)

// KindLabel renders an outcome kind for people, e.g. "No Results".
func KindLabel(kind outcome.Kind) string {
	return titleCaser.String(strings.ReplaceAll(string(kind), "_", " "))
}

var summaryHeader = table.Row{"#", "Formula", "Ion", "Score", "Tree", "Isotope", "Tree Size", "Explained", "Iso Peaks"}

// RenderSummary returns the human readable block printed for one record.
// At most limit candidates are listed; zero lists all of them.
func RenderSummary(rec outcome.Record, limit int) string {
	var b strings.Builder
	label := rec.Name
	if label == "" {
		label = "instance"
	}
	fmt.Fprintf(&b, "%s %d (%s, %s)", KindLabel(rec.Kind), rec.Index, label, rec.IonType)
	if rec.Kind != outcome.KindSuccess {
		if rec.Message != "" {
			fmt.Fprintf(&b, ": %s", rec.Message)
		}
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString("\n")

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(summaryHeader)
	for i, c := range rec.Candidates {
		if limit > 0 && i >= limit {
			break
		}
		ion := c.IonType.String()
		if ion == "" {
			ion = rec.IonType
		}
		tw.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			c.Formula.String(),
			ion,
			formatScore(c.Score),
			formatScore(c.TreeScore),
			formatScore(c.IsotopeScore),
			strconv.Itoa(c.TreeSize),
			fmt.Sprintf("%.1f %%", c.ExplainedIntensity*100),
			strconv.Itoa(c.IsotopePeaks),
		})
	}
	configs := make([]table.ColumnConfig, 0, len(summaryHeader))
	for i := range summaryHeader {
		align := text.AlignRight
		if i == 1 || i == 2 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	b.WriteString(tw.Render())
	b.WriteString("\n")
	return b.String()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
