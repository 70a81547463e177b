package tickets

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const timestampLayout = "2006-01-02 15:04:05"

// ExportXLSX writes tickets to a workbook with one sheet per base intent. Each
// sheet has one column per slot seen for that intent, followed by the full
// intent and the filing timestamp.
func ExportXLSX(path string, ts []Ticket) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	groups := map[string][]Ticket{}
	order := []string{}
	for _, t := range ts {
		base := t.BaseIntent()
		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], t)
	}

	const defaultSheet = "Sheet1"
	for i, base := range order {
		idx, err := f.NewSheet(base)
		if err != nil {
			return errors.Wrapf(err, "create sheet %q", base)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeSheet(f, base, groups[base]); err != nil {
			return err
		}
	}
	if len(order) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return errors.Wrap(err, "delete default sheet")
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, ts []Ticket) error {
	seen := map[string]bool{}
	slotCols := []string{}
	for _, t := range ts {
		for k := range t.Slots {
			if !seen[k] {
				seen[k] = true
				slotCols = append(slotCols, k)
			}
		}
	}
	sort.Strings(slotCols)

	header := make([]interface{}, 0, len(slotCols)+2)
	for _, c := range slotCols {
		header = append(header, c)
	}
	header = append(header, "intent", "timestamp")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrapf(err, "write header of %s", sheet)
	}

	for i, t := range ts {
		row := make([]interface{}, 0, len(header))
		for _, c := range slotCols {
			row = append(row, t.Slots[c])
		}
		row = append(row, t.Intent, t.CreatedAt.In(time.Local).Format(timestampLayout))
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d of %s", i+2, sheet)
		}
	}
	return nil
}
