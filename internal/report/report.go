// Package report renders compliance snapshots as xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"qualityline/internal/domain"
	"qualityline/internal/engine"
	"qualityline/internal/lifecycle"
)

const (
	SheetOverview  = "Overview"
	SheetCategory  = "Categories"
	SheetClauses   = "Clauses"
	SheetProcesses = "Processes"
	SheetFunctions = "Functions"
	SheetActions   = "Actions"
)

var metricsHeader = []any{"Functions", "Implemented", "Partial", "Not implemented", "Nonconformity", "Improvement", "Compliance %"}

// ContentType of the workbooks Write produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Write renders the engine's current state as a compliance workbook.
func Write(w io.Writer, e engine.Engine) error {
	f, err := Build(e)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Build assembles the workbook. Callers own the returned file and must Close it.
func Build(e engine.Engine) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetCategory, SheetClauses, SheetProcesses, SheetFunctions, SheetActions} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	b := builder{f: f}
	b.row(SheetOverview, 1, append([]any{"Scope"}, metricsHeader...))
	b.row(SheetOverview, 2, metricsRow("overall", e.ComplianceMetrics()))
	b.row(SheetOverview, 4, []any{"Generated", now.UTC().Format(time.RFC3339)})

	b.row(SheetCategory, 1, append([]any{"Category"}, metricsHeader...))
	for i, c := range e.ComplianceByCategory() {
		b.row(SheetCategory, i+2, metricsRow(c.Category, c.Metrics))
	}

	b.row(SheetClauses, 1, append([]any{"Clause"}, metricsHeader...))
	for i, c := range e.ComplianceByClause() {
		b.row(SheetClauses, i+2, metricsRow(c.Clause, c.Metrics))
	}

	names := map[string]string{}
	b.row(SheetProcesses, 1, append([]any{"Process", "Type"}, metricsHeader...))
	for i, p := range e.Processes() {
		names[p.ID] = p.Name
		b.row(SheetProcesses, i+2, append([]any{p.Name, p.Type}, metricsRow("", e.ComplianceByProcess(p.ID))[1:]...))
	}

	b.row(SheetFunctions, 1, []any{"Process", "Function", "Status", "Evidence", "Updated"})
	for i, fi := range e.FunctionInstances() {
		b.row(SheetFunctions, i+2, []any{names[fi.ProcessID], fi.FunctionID, string(fi.Status), fi.Evidence.Len(), fi.UpdatedAt})
	}

	b.row(SheetActions, 1, []any{"Process", "Action", "Status", "Deadline", "Overdue", "Result"})
	for i, a := range e.Actions() {
		result := ""
		if a.EfficiencyEvaluation != nil {
			result = string(a.EfficiencyEvaluation.Result)
		}
		b.row(SheetActions, i+2, []any{names[a.ProcessID], a.Title, string(a.Status), a.Deadline, lifecycle.IsOverdue(a, now), result})
	}

	if b.err != nil {
		f.Close()
		return nil, b.err
	}
	return f, nil
}

// builder keeps the first error so rows can be written without checks.
type builder struct {
	f   *excelize.File
	err error
}

func (b *builder) row(sheet string, n int, values []any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetSheetRow(sheet, cell, &values); err != nil {
		b.err = fmt.Errorf("sheet %s row %d: %w", sheet, n, err)
	}
}

func metricsRow(label string, m domain.ComplianceMetrics) []any {
	return []any{
		label,
		m.TotalFunctions,
		m.ImplementedCount,
		m.PartiallyImplementedCount,
		m.NotImplementedCount,
		m.NonconformityCount,
		m.ImprovementOpportunityCount,
		m.CompliancePercentage,
	}
}
