package report_test

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qualityline/internal/app"
	"qualityline/internal/config"
	"qualityline/internal/domain"
	"qualityline/internal/engine"
	"qualityline/internal/report"
)

func TestWorkbookCarriesComplianceAndActions(t *testing.T) {
	ctx := context.Background()
	sess, err := app.Open(ctx, app.Options{Config: config.Default("org-report"), Ephemeral: true, LogOutput: io.Discard})
	require.NoError(t, err)
	defer sess.Close(ctx)

	e := sess.Engine
	e.Now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	p, created, err := e.CreateProcess(engine.ProcessInput{Name: "Purchasing", Type: "operational"})
	require.NoError(t, err)
	require.NotEmpty(t, created)
	_, err = e.SetFunctionStatus(created[0].ID, domain.Implemented, "")
	require.NoError(t, err)
	_, err = e.CreateAction(engine.ActionInput{Title: "Audit suppliers", ProcessID: p.ID, Deadline: "2024-04-01"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, e))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		report.SheetOverview, report.SheetCategory, report.SheetClauses,
		report.SheetProcesses, report.SheetFunctions, report.SheetActions,
	}, f.GetSheetList())

	cell := func(sheet, axis string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}
	m := e.ComplianceMetrics()
	assert.Equal(t, "overall", cell(report.SheetOverview, "A2"))
	assert.Equal(t, strconv.Itoa(m.TotalFunctions), cell(report.SheetOverview, "B2"))
	assert.Equal(t, strconv.Itoa(m.CompliancePercentage), cell(report.SheetOverview, "H2"))
	assert.Equal(t, "2024-05-01T08:00:00Z", cell(report.SheetOverview, "B4"))

	assert.Equal(t, "Purchasing", cell(report.SheetProcesses, "A2"))
	assert.Equal(t, "Audit suppliers", cell(report.SheetActions, "B2"))
	assert.Equal(t, "TRUE", cell(report.SheetActions, "E2"))

	rows, err := f.GetRows(report.SheetFunctions)
	require.NoError(t, err)
	assert.Len(t, rows, len(created)+1)
}
