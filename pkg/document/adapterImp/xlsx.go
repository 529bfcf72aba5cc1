package adapterImp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"formassist/entities"
	"formassist/pkg/document/adapter"
)

type xlsx struct{}

// NewXLSX returns the spreadsheet adapter: every non-empty cell is a
// table-cell block, sheets in workbook order, rows then columns.
func NewXLSX() adapter.Adapter { return xlsx{} }

func (xlsx) Format() string { return adapter.FormatXLSX }

func (xlsx) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

type cellRef struct {
	sheet string
	cell  string
}

func (xlsx) Parse(doc []byte) ([]entities.TextBlock, error) {
	f, err := openWorkbook(doc)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	blocks, _, err := scanCells(f)
	return blocks, err
}

func (xlsx) Serialize(original []byte, blocks []entities.TextBlock) ([]byte, error) {
	f, err := openWorkbook(original)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	parsed, refs, err := scanCells(f)
	if err != nil {
		return nil, err
	}
	changed, err := adapter.ChangedBlocks(parsed, blocks)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return bytes.Clone(original), nil
	}
	for idx, content := range changed {
		ref := refs[idx]
		if err := f.SetCellStr(ref.sheet, ref.cell, content); err != nil {
			return nil, fmt.Errorf("set %s!%s: %w", ref.sheet, ref.cell, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func openWorkbook(doc []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedDocument, err)
	}
	if len(f.GetSheetList()) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", entities.ErrMalformedDocument)
	}
	return f, nil
}

func scanCells(f *excelize.File) ([]entities.TextBlock, []cellRef, error) {
	var (
		blocks []entities.TextBlock
		refs   []cellRef
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: sheet %s: %v", entities.ErrMalformedDocument, sheet, err)
		}
		for r, row := range rows {
			for c, val := range row {
				if strings.TrimSpace(val) == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, nil, err
				}
				blocks = append(blocks, entities.TextBlock{Index: len(blocks), Content: val, Kind: entities.KindTableCell})
				refs = append(refs, cellRef{sheet: sheet, cell: cell})
			}
		}
	}
	return blocks, refs, nil
}
