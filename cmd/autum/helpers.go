package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Afrawles/autum/internal/config"
)

var exportFormats = []string{"xlsx", "csv", "json"}

// parseFormats splits a comma-separated format list and rejects unknown
// formats.
func parseFormats(input string) ([]string, error) {
	formats := config.ParseList(strings.ToLower(input))
	if len(formats) == 0 {
		return nil, fmt.Errorf("at least one format is required (%s)", strings.Join(exportFormats, ", "))
	}
	for _, f := range formats {
		if !slices.Contains(exportFormats, f) {
			return nil, fmt.Errorf("unknown format %q (valid: %s)", f, strings.Join(exportFormats, ", "))
		}
	}
	return formats, nil
}

// resolveDate returns input, or today when input is empty.
func resolveDate(input string) (string, error) {
	if input == "" {
		return time.Now().Format("2006-01-02"), nil
	}
	if _, err := time.Parse("2006-01-02", input); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", input)
	}
	return input, nil
}

// configLookup reads the environment, with --config taking the place of
// AUTUM_CONFIG when given.
func configLookup(path string) config.Lookup {
	return func(key string) (string, bool) {
		if key == config.FileEnvKey && path != "" {
			return path, true
		}
		return os.LookupEnv(key)
	}
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetWriter(os.Stderr),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
