package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/iceplantengineering/paperplant/internal/lineage"

	"github.com/xuri/excelize/v2"
)

const (
	TimelineSheet = "Timeline"
	StepsSheet    = "Process Steps"

	timeLayout = "2006-01-02 15:04:05"
)

// TimelineHeader columns of the timeline sheet
var TimelineHeader = []string{"Timestamp", "Event", "Title", "Description"}

// StepsHeader columns of the process steps sheet
var StepsHeader = []string{
	"Record ID",
	"Process",
	"Machine",
	"Operator",
	"Start",
	"End",
	"Duration (h)",
	"Output (kg)",
	"Quality Checks",
	"Machine Logs",
}

// JourneyWorkbook renders a lineage chain as an XLSX workbook:
// the ordered timeline on one sheet, the process steps on another.
func JourneyWorkbook(chain *lineage.Chain) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(TimelineSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(StepsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, TimelineSheet, TimelineHeader, []float64{22, 22, 28, 50}, headerStyle); err != nil {
		return nil, err
	}
	for i, ev := range chain.Timeline {
		row := []any{ev.Timestamp.UTC().Format(timeLayout), string(ev.EventType), ev.Title, ev.Description}
		if err := writeRow(f, TimelineSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := writeHeader(f, StepsSheet, StepsHeader, []float64{10, 20, 10, 12, 22, 22, 13, 13, 15, 13}, headerStyle); err != nil {
		return nil, err
	}
	for i, step := range chain.Steps {
		rec := step.Record
		end := ""
		var duration any
		if rec.EndTS != nil {
			end = rec.EndTS.UTC().Format(timeLayout)
			duration = rec.DurationHours()
		}
		row := []any{
			rec.RecordID,
			rec.ProcessCode.DisplayName(),
			rec.MachineID,
			rec.OperatorID,
			rec.StartTS.UTC().Format(timeLayout),
			end,
			duration,
			rec.OutputKg,
			step.QualityCheckCount,
			len(step.MachineLogs),
		}
		if err := writeRow(f, StepsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Lot journey " + chain.LotID,
		Subject: "Batch " + chain.BatchID,
		Created: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		if i < len(widths) {
			col, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}
