// Writes the daily workbook of newly accepted bids. One row per
// accepted bid under the keyword that found it, ordered the way the
// pipeline hands them over (per keyword, best score first).

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"gembidwatch/internal/scorer"
)

const sheetName = "Bids"

var columns = []string{"Keyword", "bid_no", "items", "quantity", "department", "start_date", "end_date", "pdf_url"}

type Row struct {
	Keyword     string
	BidNo       string
	Items       string
	Quantity    string
	Department  string
	StartDate   string
	EndDate     string
	DocumentURL string
}

// FromScored flattens an accepted scored bid into a report row.
func FromScored(sb scorer.ScoredBid) Row {
	return Row{
		Keyword:     sb.Keyword.Text,
		BidNo:       sb.Bid.BidNo,
		Items:       sb.Bid.Items,
		Quantity:    sb.Bid.Quantity,
		Department:  sb.Bid.Department,
		StartDate:   sb.Bid.StartDate,
		EndDate:     sb.Bid.EndDate.UTC().Format("2006-01-02"),
		DocumentURL: sb.Bid.DocumentURL,
	}
}

// WriteWorkbook saves the rows as GeM_Bids_<date>.xlsx under dir and
// returns the full path.
func WriteWorkbook(dir string, runDate time.Time, rows []Row) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir %s: %w", dir, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("name sheet: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
	}

	for r, row := range rows {
		values := []any{
			row.Keyword, row.BidNo, row.Items, row.Quantity,
			row.Department, row.StartDate, row.EndDate, row.DocumentURL,
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return "", fmt.Errorf("write row %d: %w", r+2, err)
			}
		}
	}

	//keep the long columns readable when the sheet is opened as-is
	_ = f.SetColWidth(sheetName, "A", "B", 22)
	_ = f.SetColWidth(sheetName, "C", "C", 60)
	_ = f.SetColWidth(sheetName, "D", "D", 10)
	_ = f.SetColWidth(sheetName, "E", "E", 40)
	_ = f.SetColWidth(sheetName, "F", "G", 20)
	_ = f.SetColWidth(sheetName, "H", "H", 50)

	path := filepath.Join(dir, fmt.Sprintf("GeM_Bids_%s.xlsx", runDate.Format("2006-01-02")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report %s: %w", path, err)
	}
	return path, nil
}
