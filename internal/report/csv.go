package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var timesheetHeader = []string{
	"#",
	"Employee ID",
	"Employee Name",
	"Date",
	"Project",
	"Task",
	"Task Description",
	"Status",
	"Remark",
	"Hours",
	"Billable",
	"Role",
	"Site",
}

type CSVExporter struct {
	OutputDir string
}

func NewCSVExporter(outputDir string) *CSVExporter {
	return &CSVExporter{OutputDir: outputDir}
}

// Export writes the timesheet rows and a per-project hours dashboard. It
// returns the path of the timesheet file.
func (e *CSVExporter) Export(entries []TimesheetEntry, emp Employee) (string, error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	base := exportBaseName(emp, time.Now())

	path, err := e.exportTimesheet(entries, emp, base)
	if err != nil {
		return "", fmt.Errorf("failed to export timesheet: %w", err)
	}

	if err := e.exportDashboard(entries, base); err != nil {
		return "", fmt.Errorf("failed to export dashboard: %w", err)
	}

	return path, nil
}

func (e *CSVExporter) exportTimesheet(entries []TimesheetEntry, emp Employee, base string) (string, error) {
	filename := filepath.Join(e.OutputDir, base+".csv")
	file, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(timesheetHeader); err != nil {
		return "", err
	}
	for i, entry := range entries {
		if err := writer.Write(timesheetRow(i+1, emp, entry)); err != nil {
			return "", err
		}
	}

	writer.Flush()
	return filename, writer.Error()
}

func (e *CSVExporter) exportDashboard(entries []TimesheetEntry, base string) error {
	filename := filepath.Join(e.OutputDir, base+"_dashboard.csv")
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	from, to := dateRange(entries)
	if err := writer.Write([]string{"Date From:", from}); err != nil {
		return err
	}
	if err := writer.Write([]string{"Date to:", to}); err != nil {
		return err
	}
	if err := writer.Write([]string{""}); err != nil {
		return err
	}

	if err := writer.Write([]string{"Project", "Days", "Hours"}); err != nil {
		return err
	}

	rows := projectRows(entries)
	totalDays, totalHours := 0, 0.0
	for _, r := range rows {
		if err := writer.Write([]string{r.project, strconv.Itoa(r.days), formatHours(r.hours)}); err != nil {
			return err
		}
		totalDays += r.days
		totalHours += r.hours
	}

	if err := writer.Write([]string{"Total", strconv.Itoa(totalDays), formatHours(totalHours)}); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

func timesheetRow(n int, emp Employee, entry TimesheetEntry) []string {
	return []string{
		strconv.Itoa(n),
		emp.ID,
		emp.Name,
		entry.Date,
		entry.Project,
		entry.Task,
		entry.TaskDescription,
		entry.Status,
		entry.Remark,
		entry.Hours,
		entry.Billable,
		entry.Role,
		entry.Site,
	}
}

type projectRow struct {
	project string
	days    int
	hours   float64
}

// projectRows groups entries by project, sorted by name.
func projectRows(entries []TimesheetEntry) []projectRow {
	byProject := make(map[string]*projectRow)
	var names []string
	for _, entry := range entries {
		project := projectName(entry)
		r, ok := byProject[project]
		if !ok {
			r = &projectRow{project: project}
			byProject[project] = r
			names = append(names, project)
		}
		hours, _ := strconv.ParseFloat(entry.Hours, 64)
		r.days++
		r.hours += hours
	}

	sort.Strings(names)
	rows := make([]projectRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, *byProject[name])
	}
	return rows
}

func projectName(entry TimesheetEntry) string {
	if entry.Project == "" {
		return "Unknown"
	}
	return entry.Project
}

func dateRange(entries []TimesheetEntry) (string, string) {
	if len(entries) == 0 {
		return "", ""
	}
	return entries[0].Date, entries[len(entries)-1].Date
}

func exportBaseName(emp Employee, now time.Time) string {
	id := strings.TrimSpace(emp.ID)
	if id == "" {
		id = "employee"
	}
	return fmt.Sprintf("timesheet_%s_%s", sanitizeFileName(id), now.Format("2006-01-02_15-04-05"))
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(round2(h), 'f', -1, 64)
}
