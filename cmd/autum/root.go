package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Afrawles/autum/internal/api"
	"github.com/Afrawles/autum/internal/autum"
	"github.com/Afrawles/autum/internal/config"
	"github.com/Afrawles/autum/internal/logger"
	"github.com/Afrawles/autum/internal/report"
)

var (
	configPath string

	email    string
	date     string
	provider string
	htmlOut  string

	projectKey   string
	githubUser   string
	githubToken  string
	days         int
	format       string
	output       string
	employeeID   string
	employeeName string
	role         string
	site         string
	billable     string
	hours        string
)

var rootCmd = &cobra.Command{
	Use:           "autum",
	Short:         "Turn Jira and GitHub activity into standup summaries and timesheets",
	Long:          `Autum collects a developer's Jira worklogs and GitHub events and asks an LLM to write standup summaries and timesheet remarks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	summaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Write the standup summary for one day",
		RunE:  runSummary,
	}

	timesheetCmd = &cobra.Command{
		Use:   "timesheet",
		Short: "Generate timesheet entries for the trailing days",
		Long:  `Generates one timesheet entry per day, oldest first and ending today, and exports them as XLSX, CSV or JSON.`,
		RunE:  runTimesheet,
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to Jira, GitHub and the LLM provider",
		RunE:  runCheck,
	}
)

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, summaryCmd, timesheetCmd, checkCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (overrides AUTUM_CONFIG)")

	summaryCmd.Flags().StringVarP(&email, "email", "e", "", "Developer email as recorded on Jira worklogs")
	summaryCmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD), defaults to today")
	summaryCmd.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider: azure, openai, grok, gemini")
	summaryCmd.Flags().StringVar(&htmlOut, "html", "", "Also write the summary as HTML to this file")
	_ = summaryCmd.MarkFlagRequired("email")

	timesheetCmd.Flags().StringVarP(&email, "email", "e", "", "Jira worklog author email")
	timesheetCmd.Flags().StringVar(&projectKey, "project", "", "Project key used on days without activity")
	timesheetCmd.Flags().StringVar(&githubUser, "github-user", "", "GitHub username")
	timesheetCmd.Flags().StringVar(&githubToken, "github-token", "", "GitHub token (defaults to GITHUB_TOKEN)")
	timesheetCmd.Flags().IntVar(&days, "days", 0, "Number of trailing days, 1-31 (defaults to TIMESHEET_DAYS)")
	timesheetCmd.Flags().StringVarP(&format, "format", "f", "xlsx", "Export formats, comma-separated: xlsx, csv, json")
	timesheetCmd.Flags().StringVarP(&output, "output", "o", "reports", "Output directory")
	timesheetCmd.Flags().StringVar(&employeeID, "employee-id", "", "Employee ID column")
	timesheetCmd.Flags().StringVar(&employeeName, "employee-name", "", "Employee name column")
	timesheetCmd.Flags().StringVar(&role, "role", "", "Role column")
	timesheetCmd.Flags().StringVar(&site, "site", "", "Site column")
	timesheetCmd.Flags().StringVar(&billable, "billable", "", "Billable column")
	timesheetCmd.Flags().StringVar(&hours, "hours", "", "Authorized hours per active day")
	timesheetCmd.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider: azure, openai, grok, gemini")
}

func newApp() (*autum.Application, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configLookup(configPath))
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(log)

	return autum.New(cfg, log), cfg, log, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	app, cfg, log, err := newApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	srv := api.NewServer(app, cfg.Server, log)
	return srv.Run(ctx, ":"+cfg.Server.Port)
}

func runSummary(cmd *cobra.Command, args []string) error {
	day, err := resolveDate(date)
	if err != nil {
		return err
	}

	app, _, _, err := newApp()
	if err != nil {
		return err
	}

	bar := newSpinner(fmt.Sprintf("Summarizing %s", day))
	summary, err := app.Summarize(cmd.Context(), autum.SummaryRequest{
		DeveloperEmail: email,
		Date:           day,
		LLMProvider:    provider,
	})
	finishBar(bar)
	if err != nil {
		return err
	}

	fmt.Printf("\nStatus: %s  Total hours: %.2f\n", summary.Status, summary.TotalHours)
	for _, d := range summary.Details {
		fmt.Printf("  -> %s %s (%s, %.2fh)\n", d.Key, d.Summary, d.Status, d.TimeSpent)
	}
	fmt.Printf("\n%s\n", summary.Summary)

	if htmlOut != "" {
		providerName := provider
		if providerName == "" {
			providerName = app.Gateway.DefaultProvider()
		}
		exporter := report.NewExporter(filepath.Dir(htmlOut))
		path, err := exporter.ExportHTML(summary, report.SummaryInfo{
			Developer: email,
			Date:      day,
			Provider:  providerName,
		}, filepath.Base(htmlOut))
		if err != nil {
			return fmt.Errorf("failed to export html: %w", err)
		}
		fmt.Printf("\nHTML summary saved: %s\n", path)
	}
	return nil
}

func runTimesheet(cmd *cobra.Command, args []string) error {
	formats, err := parseFormats(format)
	if err != nil {
		return err
	}

	app, _, _, err := newApp()
	if err != nil {
		return err
	}

	req := autum.TimesheetRequest{
		JiraEmail:       email,
		JiraProjectKey:  projectKey,
		GitHubUsername:  githubUser,
		GitHubToken:     githubToken,
		Days:            days,
		EmployeeID:      employeeID,
		EmployeeName:    employeeName,
		Billable:        billable,
		Role:            role,
		Site:            site,
		AuthorizedHours: hours,
		LLMProvider:     provider,
	}

	var bar *progressbar.ProgressBar
	entries, err := app.Timesheet(cmd.Context(), req, func(day string, i, total int) {
		finishBar(bar)
		bar = newSpinner(fmt.Sprintf("Day %d/%d %s", i+1, total, day))
	})
	finishBar(bar)
	if err != nil {
		return err
	}

	emp := report.Employee{ID: employeeID, Name: employeeName}
	fmt.Printf("\nGenerated %d entries\n\n", len(entries))

	exportBar := progressbar.NewOptions(len(formats),
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	var saved []string
	for _, f := range formats {
		var path string
		switch f {
		case "xlsx":
			path, err = report.NewExcelExporter(output).Export(entries, emp)
		case "csv":
			path, err = report.NewCSVExporter(output).Export(entries, emp)
		case "json":
			name := fmt.Sprintf("timesheet_%s.json", time.Now().Format("20060102_150405"))
			path, err = report.NewExporter(output).ExportJSON(entries, name)
		}
		if err != nil {
			fmt.Printf("Failed to export %s: %v\n", f, err)
			continue
		}
		saved = append(saved, path)
		_ = exportBar.Add(1)
	}
	finishBar(exportBar)

	fmt.Printf("\nReports saved to %s/\n", output)
	for _, p := range saved {
		fmt.Printf("  -> %s\n", p)
	}

	stats := report.Statistics(entries)
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Days: %d (active: %d)\n", stats["days"], stats["active_days"])
	fmt.Printf("  Total hours: %v\n", stats["total_hours"])

	if len(saved) < len(formats) {
		return fmt.Errorf("%d of %d exports failed", len(formats)-len(saved), len(formats))
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	app, _, _, err := newApp()
	if err != nil {
		return err
	}

	bar := newSpinner("Checking connectivity")
	readiness := app.Connectivity(cmd.Context())
	finishBar(bar)

	names := make([]string, 0, len(readiness.Checks))
	for name := range readiness.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	for _, name := range names {
		check := readiness.Checks[name]
		if check.Detail != "" {
			fmt.Printf("  %-7s %-13s %s\n", name, check.Status, check.Detail)
		} else {
			fmt.Printf("  %-7s %s\n", name, check.Status)
		}
	}

	if !readiness.Ready {
		data, _ := json.Marshal(readiness)
		return fmt.Errorf("not ready: %s", data)
	}
	return nil
}
