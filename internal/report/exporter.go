package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed "templates"
var templateFS embed.FS

// Employee identifies whose timesheet is exported.
type Employee struct {
	ID   string
	Name string
}

// SummaryInfo is the header of an exported standup summary.
type SummaryInfo struct {
	Developer string
	Date      string
	Provider  string
}

type Exporter struct {
	OutputDir string
}

func NewExporter(outputDir string) *Exporter {
	return &Exporter{OutputDir: outputDir}
}

// ExportJSON writes v as indented JSON and returns the file path.
func (e *Exporter) ExportJSON(v any, filename string) (string, error) {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(e.OutputDir, filename)
	return path, os.WriteFile(path, data, 0644)
}

// ExportHTML renders a standup summary as a standalone HTML page.
func (e *Exporter) ExportHTML(summary *ActivitySummary, info SummaryInfo, filename string) (string, error) {
	funcMap := template.FuncMap{
		"title": cases.Title(language.English).String,
		"lines": func(s string) []string { return strings.Split(strings.TrimSpace(s), "\n") },
	}
	tmpl, err := template.New("summary.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/summary.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(e.OutputDir, filename)
	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create HTML file: %w", err)
	}
	defer f.Close()

	data := map[string]any{
		"Generated": time.Now().Format("2006-01-02 15:04:05"),
		"Info":      info,
		"Summary":   summary,
	}

	if err := tmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return outputPath, nil
}
