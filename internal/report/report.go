// Package report exports class progress as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/progress"
)

// SheetName is the worksheet holding the student rows.
const SheetName = "Progress"

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Header is the first row of the sheet.
var Header = []string{
	"Student", "Grade", "Curriculum", "Completed", "Total", "Current Topic", "Remaining", "Messages", "Last Active",
}

// Row is one student's summary.
type Row struct {
	Student      string
	Grade        string
	Curriculum   string
	Completed    int
	Total        int
	CurrentTopic string
	Remaining    string
	Messages     int
	LastActive   time.Time
}

// Summarize reduces a stored record to a report row.
func Summarize(rec progress.Record) Row {
	cur := rec.Progress.Curriculum
	row := Row{
		Student:    rec.StudentName,
		Grade:      string(rec.Progress.Grade),
		Curriculum: cur.Title,
		Completed:  cur.CompletedCount(),
		Total:      len(cur.Topics),
		Messages:   len(rec.Progress.History),
		LastActive: rec.UpdatedAt,
	}
	if t, ok := cur.CurrentTopic(); ok {
		row.CurrentTopic = t.Name
	} else if row.Total > 0 {
		row.CurrentTopic = "Finished"
	}

	var lo, hi int
	for _, t := range cur.Topics {
		if t.Completed {
			continue
		}
		l, h := curriculum.ParseDuration(t.Duration)
		lo += l
		hi += h
	}
	row.Remaining = curriculum.FormatRange(lo, hi)
	return row
}

func (r Row) values() []any {
	last := ""
	if !r.LastActive.IsZero() {
		last = r.LastActive.UTC().Format(time.RFC3339)
	}
	return []any{r.Student, r.Grade, r.Curriculum, r.Completed, r.Total, r.CurrentTopic, r.Remaining, r.Messages, last}
}

// WriteTerminalProgress writes a workbook with one row per student of a
// terminal.
func WriteTerminalProgress(w io.Writer, terminalID string, records []progress.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Header))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, rec := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := Summarize(rec).values()
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row for %s: %w", rec.StudentName, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", lastCol, 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Class progress " + terminalID,
		Creator: "Code Buddy",
	}); err != nil {
		return fmt.Errorf("set properties: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
