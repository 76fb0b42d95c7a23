package render

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders the spec's data rows as a terminal table.
func Table(s *Spec) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if s.Title != "" {
		tw.SetTitle(s.Title)
	}
	tw.AppendHeader(table.Row{"Key", "Category", "Verses", "Mean", "Min", "Max", "Variance"})

	for _, row := range s.Data {
		tw.AppendRow(table.Row{
			row.Key,
			row.Category,
			row.Count,
			fmt.Sprintf("%.4f", row.Mean),
			fmt.Sprintf("%.4f", row.Min),
			fmt.Sprintf("%.4f", row.Max),
			fmt.Sprintf("%.4f", row.Variance),
		})
	}
	if s.Incomplete > 0 {
		tw.AppendFooter(table.Row{"", "", "", "", "", "incomplete", s.Incomplete})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render(), nil
}
