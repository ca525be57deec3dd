package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/flanksource/animator/cache"
	"github.com/flanksource/animator/timeline"
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
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func sceneTable() string {
	var rows [][]string
	for _, name := range timeline.BuiltinNames() {
		tl, err := timeline.Builtin(name)
		if err != nil {
			continue
		}
		rows = append(rows, []string{
			name,
			tl.Title,
			fmt.Sprintf("%gs", tl.Duration),
			fmt.Sprintf("%dx%d", tl.Width, tl.Height),
			tl.Summary(),
		})
	}
	return renderTable(
		[]string{"Scene", "Title", "Duration", "Size", "Cues"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func historyTable(entries []cache.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			humanize.Time(e.CreatedAt),
			filepath.Base(e.Input),
			e.Output,
			e.Backend,
			fmt.Sprintf("%d @ %dfps", e.Frames, e.FPS),
			humanize.Bytes(uint64(max(e.SizeBytes, 0))),
			(time.Duration(e.DurationMS) * time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Rendered", "Input", "Output", "Backend", "Frames", "Size", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func statsTable(stats []cache.StatsEntry) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Backend,
			humanize.Comma(s.Renders),
			humanize.Comma(s.TotalFrames),
			s.AvgDuration.Round(time.Millisecond).String(),
			humanize.Time(s.LastRender),
		})
	}
	return renderTable(
		[]string{"Backend", "Renders", "Frames", "Avg", "Last"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}
