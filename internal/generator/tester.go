package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/mrz1836/gamesmith/internal/artifact"
	"github.com/mrz1836/gamesmith/internal/domain"
)

// Check case ids reported by Tester.
const (
	CaseFilePresence = "file-presence-check"
	CaseHTMLContent  = "html-content-check"
	CaseConfig       = "config-content-check"
	CaseSummary      = "summary"
)

const configSuffix = "_config.json"

// Tester runs structural checks over the files of a deliverable.
type Tester struct{}

// Run checks that the deliverable has an HTML page with a title and body,
// plus a config file that parses and carries a string title.
func (Tester) Run(files []domain.Artifact) []domain.TestResult {
	var htmlFile, configFile *domain.Artifact
	for i := range files {
		f := &files[i]
		name := strings.ToLower(path.Base(f.Path))
		if name == "." || name == "/" {
			name = strings.ToLower(f.Name)
		}
		switch {
		case htmlFile == nil && strings.HasSuffix(name, ".html"):
			htmlFile = f
		case configFile == nil && strings.HasSuffix(name, configSuffix):
			configFile = f
		}
	}

	results := []domain.TestResult{
		result(CaseFilePresence, "HTML and config files exist", htmlFile != nil && configFile != nil),
	}

	htmlOK := htmlFile != nil &&
		strings.Contains(htmlFile.Content, "<title>") &&
		strings.Contains(htmlFile.Content, "<body>")
	results = append(results, result(CaseHTMLContent, "HTML has a title and a body", htmlOK))

	results = append(results, result(CaseConfig, "Config parses and has a title", configFile != nil && validConfig(configFile.Content)))
	return results
}

func validConfig(content string) bool {
	var cfg map[string]any
	if err := json.Unmarshal([]byte(content), &cfg); err != nil {
		return false
	}
	_, ok := cfg["title"].(string)
	return ok
}

func result(caseID, description string, passed bool) domain.TestResult {
	status := "Failed"
	if passed {
		status = "Passed"
	}
	return domain.TestResult{
		CaseID:  caseID,
		Passed:  passed,
		Message: description + ": " + status,
	}
}

// Summarize folds check results into a single result.
func Summarize(results []domain.TestResult) domain.TestResult {
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	if failed == 0 {
		return domain.TestResult{
			CaseID:  CaseSummary,
			Passed:  true,
			Message: fmt.Sprintf("All %d tests passed.", len(results)),
		}
	}
	return domain.TestResult{
		CaseID:  CaseSummary,
		Message: fmt.Sprintf("%d out of %d tests failed.", failed, len(results)),
	}
}

// LoadLatestDeliverable reads the files of the newest deliverable stored for taskID.
// Deliverables live at {taskId}/game-<millis>/. It returns nil when there is none.
func LoadLatestDeliverable(ctx context.Context, store artifact.Store, taskID string) ([]domain.Artifact, error) {
	paths, err := store.List(ctx, taskID)
	if err != nil {
		return nil, err
	}

	latest := ""
	for _, p := range paths {
		dir := deliverableDir(taskID, p)
		if dir != "" && (len(dir) > len(latest) || (len(dir) == len(latest) && dir > latest)) {
			latest = dir
		}
	}
	if latest == "" {
		return nil, nil
	}

	var files []domain.Artifact
	for _, p := range paths {
		if deliverableDir(taskID, p) != latest {
			continue
		}
		data, err := store.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		files = append(files, domain.Artifact{
			TaskID:   taskID,
			Name:     path.Base(p),
			Path:     p,
			Kind:     KindForFile(p),
			Content:  string(data),
			Size:     len(data),
			MimeType: MimeType(p),
		})
	}
	return files, nil
}

// deliverableDir returns the deliverable directory name of p, or "" when p is not inside one.
func deliverableDir(taskID, p string) string {
	rest, ok := strings.CutPrefix(p, taskID+"/")
	if !ok {
		return ""
	}
	dir, _, found := strings.Cut(rest, "/")
	if !found || !strings.HasPrefix(dir, "game-") {
		return ""
	}
	return dir
}
