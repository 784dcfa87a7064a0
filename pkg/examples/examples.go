package examples

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pluqqy/editbridge/pkg/files"
)

// ExampleSet represents a collection of related transcripts
type ExampleSet struct {
	Category    string
	Name        string
	Description string
	Transcripts []ExampleTranscript
}

// ExampleTranscript is one installable transcript
type ExampleTranscript struct {
	Name     string
	Filename string
	Content  string // transcript YAML
}

var categories = map[string]func() []ExampleSet{
	"formatting": getFormattingExamples,
	"tables":     getTableExamples,
	"review":     getReviewExamples,
}

// Categories lists the example categories in install order
func Categories() []string {
	return []string{"formatting", "tables", "review"}
}

// GetExamples returns example sets for the given category, or every set
// for "all"
func GetExamples(category string) []ExampleSet {
	if category == "all" {
		var all []ExampleSet
		for _, c := range Categories() {
			all = append(all, GetExamples(c)...)
		}
		return all
	}

	get, ok := categories[category]
	if !ok {
		return []ExampleSet{}
	}
	sets := get()
	for i := range sets {
		sets[i].Category = category
	}
	return sets
}

// InstallTranscript writes an example into the project's transcripts
// directory. It reports false without error when the file exists and
// force is not set.
func InstallTranscript(t ExampleTranscript, force bool) (bool, error) {
	path := filepath.Join(files.ProjectDir, files.TranscriptsDir, t.Filename)

	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create transcripts directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(t.Content), 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", t.Filename, err)
	}
	return true, nil
}
