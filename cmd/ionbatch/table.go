package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"ionbatch/internal/outcome"
	"ionbatch/internal/project"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func kindColors(kind outcome.Kind) text.Colors {
	switch kind {
	case outcome.KindSuccess:
		return text.Colors{text.FgGreen}
	case outcome.KindNoResults:
		return text.Colors{text.FgYellow}
	case outcome.KindTimeout:
		return text.Colors{text.FgMagenta}
	case outcome.KindError:
		return text.Colors{text.FgRed}
	default:
		return nil
	}
}

func runStatusColors(status project.RunStatus) text.Colors {
	switch status {
	case project.RunCompleted:
		return text.Colors{text.FgGreen}
	case project.RunFailed:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgBlue}
	}
}

func paint(value string, colors text.Colors, colorize bool) string {
	if !colorize || len(colors) == 0 {
		return value
	}
	return colors.Sprint(value)
}
