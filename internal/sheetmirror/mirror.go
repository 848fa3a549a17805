package sheetmirror

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
)

// Spreadsheet is the worksheet surface the mirror writes through.
// Implemented by pkg/sheets.Client; faked in tests.
type Spreadsheet interface {
	EnsureWorksheet(ctx context.Context, title string, header []string) error
	ReadRows(ctx context.Context, title string) ([][]any, error)
	AppendRow(ctx context.Context, title string, cells []any) error
	OverwriteRow(ctx context.Context, title string, rowNumber int, cells []any) error
	DeleteRow(ctx context.Context, title string, rowNumber int) error
}

// Mirror keeps one worksheet per entity, named after the entity, with a
// header row of column names and the record id in the first column.
type Mirror struct {
	sheet Spreadsheet

	mu      sync.Mutex
	ensured map[enums.EntityType]bool
}

func New(sheet Spreadsheet) (*Mirror, error) {
	if sheet == nil {
		return nil, fmt.Errorf("sheet mirror requires a spreadsheet client")
	}
	return &Mirror{
		sheet:   sheet,
		ensured: make(map[enums.EntityType]bool),
	}, nil
}

func (m *Mirror) ensure(ctx context.Context, entity enums.EntityType) ([]string, error) {
	fields, err := dualwrite.FieldsFor(entity)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	done := m.ensured[entity]
	m.mu.Unlock()
	if done {
		return fields, nil
	}

	if err := m.sheet.EnsureWorksheet(ctx, string(entity), fields); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.ensured[entity] = true
	m.mu.Unlock()
	return fields, nil
}

func (m *Mirror) Insert(ctx context.Context, entity enums.EntityType, record dualwrite.Record) error {
	fields, err := m.ensure(ctx, entity)
	if err != nil {
		return err
	}
	return m.sheet.AppendRow(ctx, string(entity), rowCells(fields, record))
}

func (m *Mirror) Update(ctx context.Context, entity enums.EntityType, id int64, record dualwrite.Record) error {
	fields, err := m.ensure(ctx, entity)
	if err != nil {
		return err
	}

	header, rowNumber, err := m.findRow(ctx, entity, id)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		header = fields
	}
	return m.sheet.OverwriteRow(ctx, string(entity), rowNumber, rowCells(header, record))
}

func (m *Mirror) Delete(ctx context.Context, entity enums.EntityType, id int64) error {
	if _, err := m.ensure(ctx, entity); err != nil {
		return err
	}

	_, rowNumber, err := m.findRow(ctx, entity, id)
	if err != nil {
		return err
	}
	return m.sheet.DeleteRow(ctx, string(entity), rowNumber)
}

func (m *Mirror) ReadAll(ctx context.Context, entity enums.EntityType) ([]dualwrite.Record, error) {
	if _, err := m.ensure(ctx, entity); err != nil {
		return nil, err
	}

	rows, err := m.sheet.ReadRows(ctx, string(entity))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := headerNames(rows[0])
	records := make([]dualwrite.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(dualwrite.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// findRow locates the 1-based row number whose id column matches.
func (m *Mirror) findRow(ctx context.Context, entity enums.EntityType, id int64) ([]string, int, error) {
	rows, err := m.sheet.ReadRows(ctx, string(entity))
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, dualwrite.ErrRowNotFound
	}

	header := headerNames(rows[0])
	idColumn := 0
	for i, name := range header {
		if name == "id" {
			idColumn = i
			break
		}
	}

	for i, row := range rows[1:] {
		if idColumn >= len(row) {
			continue
		}
		if cellID, ok := parseID(row[idColumn]); ok && cellID == id {
			return header, i + 2, nil
		}
	}
	return header, 0, dualwrite.ErrRowNotFound
}

func rowCells(header []string, record dualwrite.Record) []any {
	cells := make([]any, len(header))
	for i, name := range header {
		value, ok := record[name]
		if !ok || value == nil {
			cells[i] = ""
			continue
		}
		cells[i] = value
	}
	return cells
}

func headerNames(row []any) []string {
	names := make([]string, len(row))
	for i, cell := range row {
		names[i] = strings.TrimSpace(fmt.Sprint(cell))
	}
	return names
}

func parseID(cell any) (int64, bool) {
	switch v := cell.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
