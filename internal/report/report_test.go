package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/report"
)

func record(t *testing.T, name string, completed int) progress.Record {
	t.Helper()
	c, ok := curriculum.DefaultCatalog().Get(curriculum.GradeExplorer)
	require.True(t, ok)
	for i := 0; i < completed; i++ {
		c.Topics[i].Completed = true
	}
	return progress.Record{
		TerminalID:  "term_123",
		StudentName: name,
		Progress: progress.StudentProgress{
			Grade:      curriculum.GradeExplorer,
			Curriculum: c,
			History:    []progress.ChatMessage{progress.NewMessage(progress.SenderAI, "hi")},
		},
		UpdatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestSummarize(t *testing.T) {
	row := report.Summarize(record(t, "Asha", 2))
	explorer, _ := curriculum.DefaultCatalog().Get(curriculum.GradeExplorer)

	assert.Equal(t, "Asha", row.Student)
	assert.Equal(t, "EXPLORER", row.Grade)
	assert.Equal(t, "The Python Adventure", row.Curriculum)
	assert.Equal(t, 2, row.Completed)
	assert.Equal(t, 6, row.Total)
	assert.Equal(t, explorer.Topics[2].Name, row.CurrentTopic)
	assert.Equal(t, 1, row.Messages)

	done := report.Summarize(record(t, "Ravi", 6))
	assert.Equal(t, "Finished", done.CurrentTopic)
	assert.Equal(t, "0-0 mins", done.Remaining)

	fresh := report.Summarize(progress.Record{StudentName: "new"})
	assert.Empty(t, fresh.CurrentTopic)
	assert.Zero(t, fresh.Total)
}

func TestWriteTerminalProgress(t *testing.T) {
	var buf bytes.Buffer
	err := report.WriteTerminalProgress(&buf, "term_123", []progress.Record{
		record(t, "Asha", 1),
		record(t, "Ravi", 0),
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, report.Header, rows[0])
	assert.Equal(t, "Asha", rows[1][0])
	assert.Equal(t, "1", rows[1][3])
	assert.Equal(t, "6", rows[1][4])
	assert.Equal(t, "2026-03-01T09:30:00Z", rows[1][8])
	assert.Equal(t, "Ravi", rows[2][0])
	assert.Equal(t, "print(): Saying Hello", rows[2][5])
}

func TestWriteTerminalProgress_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteTerminalProgress(&buf, "term_456", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
