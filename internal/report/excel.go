package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type ExcelExporter struct {
	OutputDir string
}

func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{OutputDir: outputDir}
}

// Export writes a workbook with a dashboard, the full timesheet and one
// sheet per project, and returns its path.
func (e *ExcelExporter) Export(entries []TimesheetEntry, emp Employee) (string, error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(e.OutputDir, exportBaseName(emp, time.Now())+".xlsx")

	f := excelize.NewFile()
	defer f.Close()

	if err := e.createDashboardSheet(f, "Dashboard", entries, emp); err != nil {
		return "", fmt.Errorf("failed to create dashboard: %w", err)
	}

	if err := e.createTimesheetSheet(f, "Timesheet", entries, emp); err != nil {
		return "", fmt.Errorf("failed to create timesheet sheet: %w", err)
	}

	byProject := make(map[string][]TimesheetEntry)
	for _, entry := range entries {
		byProject[projectName(entry)] = append(byProject[projectName(entry)], entry)
	}
	used := map[string]bool{"dashboard": true, "timesheet": true}
	for _, r := range projectRows(entries) {
		sheetName := uniqueSheetName(sanitizeSheetName(r.project), used)
		if err := e.createTimesheetSheet(f, sheetName, byProject[r.project], emp); err != nil {
			return "", fmt.Errorf("failed to create sheet for %s: %w", r.project, err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to remove default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex("Dashboard"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("failed to save excel file: %w", err)
	}

	return filename, nil
}

func (e *ExcelExporter) createDashboardSheet(f *excelize.File, sheetName string, entries []TimesheetEntry, emp Employee) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(headerStyleDef())
	totalStyle, _ := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#B4C7E7"}, Pattern: 1},
		Font:   &excelize.Font{Bold: true},
		Border: thinBorder(),
	})

	from, to := dateRange(entries)
	f.SetCellValue(sheetName, "A1", "Employee:")
	f.SetCellValue(sheetName, "B1", strings.TrimSpace(emp.ID+" "+emp.Name))
	f.SetCellValue(sheetName, "A2", "Date From:")
	f.SetCellValue(sheetName, "B2", from)
	f.SetCellValue(sheetName, "A3", "Date to:")
	f.SetCellValue(sheetName, "B3", to)

	row := 5
	for col, header := range []string{"Project", "Days", "Hours"} {
		cell := cellName(col+1, row)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	row++

	totalDays, totalHours := 0, 0.0
	for _, r := range projectRows(entries) {
		f.SetCellValue(sheetName, cellName(1, row), r.project)
		f.SetCellValue(sheetName, cellName(2, row), r.days)
		f.SetCellValue(sheetName, cellName(3, row), round2(r.hours))
		totalDays += r.days
		totalHours += r.hours
		row++
	}

	f.SetCellValue(sheetName, cellName(1, row), "Total")
	f.SetCellValue(sheetName, cellName(2, row), totalDays)
	f.SetCellValue(sheetName, cellName(3, row), round2(totalHours))
	f.SetCellStyle(sheetName, cellName(1, row), cellName(3, row), totalStyle)

	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "C", 15)
	return nil
}

func (e *ExcelExporter) createTimesheetSheet(f *excelize.File, sheetName string, entries []TimesheetEntry, emp Employee) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(headerStyleDef())
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for col, header := range timesheetHeader {
		cell := cellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, entry := range entries {
		row := i + 2
		for col, value := range timesheetRow(i+1, emp, entry) {
			f.SetCellValue(sheetName, cellName(col+1, row), cellValue(col, value))
		}
		f.SetCellStyle(sheetName, cellName(9, row), cellName(9, row), wrapStyle)
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "D", 15)
	f.SetColWidth(sheetName, "E", "F", 15)
	f.SetColWidth(sheetName, "G", "G", 40)
	f.SetColWidth(sheetName, "H", "H", 15)
	f.SetColWidth(sheetName, "I", "I", 60)
	f.SetColWidth(sheetName, "J", "M", 12)

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

// cellValue stores the row number and hours as numbers.
func cellValue(col int, value string) any {
	if col == 0 || col == 9 {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n
		}
	}
	return value
}

func headerStyleDef() *excelize.Style {
	return &excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	}
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#000000", Style: 1},
		{Type: "right", Color: "#000000", Style: 1},
		{Type: "top", Color: "#000000", Style: 1},
		{Type: "bottom", Color: "#000000", Style: 1},
	}
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

const maxSheetName = 31

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")
	name = strings.ReplaceAll(name, ":", "")

	name = truncateRunes(name, maxSheetName)
	if name == "" {
		name = "Unknown"
	}

	return name
}

// uniqueSheetName appends " (n)" until name is free. Sheet names compare
// case-insensitively in excel.
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
