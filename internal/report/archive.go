// internal/report/archive.go
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"starred-digest/internal/fileutil"
	"starred-digest/internal/model"
)

const (
	// DateLayout is the day stamp used in report file names.
	DateLayout = "2006-01-02"

	filePrefix = "recent_commits_"
)

// ErrReportNotFound is returned when no report exists for the requested day.
var ErrReportNotFound = errors.New("report not found")

// Archive stores one JSON report and its Markdown rendering per day in a directory.
type Archive struct {
	dir string
}

// NewArchive creates an Archive rooted at dir. The directory is created on first save.
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

// Paths returns the JSON and Markdown file paths of the report for day.
func (a *Archive) Paths(day string) (jsonPath, mdPath string) {
	base := filepath.Join(a.dir, filePrefix+day)
	return base + ".json", base + ".md"
}

// Save writes r and its rendering for day, replacing any previous files.
func (a *Archive) Save(day string, r model.Report, markdown string) (jsonPath, mdPath string, err error) {
	if _, err := time.Parse(DateLayout, day); err != nil {
		return "", "", fmt.Errorf("invalid report date %q: %w", day, err)
	}
	jsonPath, mdPath = a.Paths(day)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}
	if err := fileutil.WriteAtomic(jsonPath, append(data, '\n')); err != nil {
		return "", "", fmt.Errorf("write report: %w", err)
	}
	if err := fileutil.WriteAtomic(mdPath, []byte(markdown)); err != nil {
		return "", "", fmt.Errorf("write report markdown: %w", err)
	}
	return jsonPath, mdPath, nil
}

// Load reads the report of day. A missing report yields ErrReportNotFound.
func (a *Archive) Load(day string) (model.Report, error) {
	if _, err := time.Parse(DateLayout, day); err != nil {
		return model.Report{}, fmt.Errorf("invalid report date %q: %w", day, err)
	}
	jsonPath, _ := a.Paths(day)

	data, err := os.ReadFile(jsonPath)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Report{}, ErrReportNotFound
	}
	if err != nil {
		return model.Report{}, err
	}

	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return model.Report{}, fmt.Errorf("decode report %s: %w", jsonPath, err)
	}
	return r, nil
}

// Markdown returns the stored rendering of day.
func (a *Archive) Markdown(day string) ([]byte, error) {
	if _, err := time.Parse(DateLayout, day); err != nil {
		return nil, fmt.Errorf("invalid report date %q: %w", day, err)
	}
	_, mdPath := a.Paths(day)
	data, err := os.ReadFile(mdPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrReportNotFound
	}
	return data, err
}

// Dates lists the days with a stored report, newest first.
func (a *Archive) Dates() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		day := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json")
		if _, err := time.Parse(DateLayout, day); err != nil {
			continue
		}
		days = append(days, day)
	}
	slices.Sort(days)
	slices.Reverse(days)
	return days, nil
}

// Latest returns the newest stored report and its day.
func (a *Archive) Latest() (string, model.Report, error) {
	days, err := a.Dates()
	if err != nil {
		return "", model.Report{}, err
	}
	if len(days) == 0 {
		return "", model.Report{}, ErrReportNotFound
	}
	r, err := a.Load(days[0])
	return days[0], r, err
}

// Recent returns the reports of the newest n days, newest first.
func (a *Archive) Recent(n int) ([]model.Report, error) {
	days, err := a.Dates()
	if err != nil {
		return nil, err
	}
	if len(days) > n {
		days = days[:n]
	}
	reports := make([]model.Report, 0, len(days))
	for _, d := range days {
		r, err := a.Load(d)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
