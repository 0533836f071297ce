package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SaveCSVTool writes model-supplied comma separated text to disk
type SaveCSVTool struct {
	dir string
}

// NewSaveCSVTool creates a tool writing into dir. An empty dir means the
// process working directory.
func NewSaveCSVTool(dir string) *SaveCSVTool {
	return &SaveCSVTool{dir: dir}
}

// Name returns the tool name
func (t *SaveCSVTool) Name() string {
	return "save_csv"
}

// Description returns the tool description
func (t *SaveCSVTool) Description() string {
	return "Saves a string of comma separated values to a csv file."
}

// Parameters returns the JSON schema for the tool parameters
func (t *SaveCSVTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "The comma separated values to convert to a csv.",
			},
			"title": map[string]interface{}{
				"type":        "string",
				"description": "The title of the csv file, without the .csv extension.",
			},
		},
		"required": []string{"text", "title"},
	}
}

// Execute writes <title>.csv, replacing any existing file. It returns the
// absolute path, or an "Error saving file" string the model can act on.
func (t *SaveCSVTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	text, err := stringArg(params, "text")
	if err != nil {
		return nil, err
	}
	title, err := stringArg(params, "title")
	if err != nil {
		return nil, err
	}

	path, err := t.save(text, title)
	if err != nil {
		return fmt.Sprintf("Error saving file: %v", err), nil
	}
	return path, nil
}

func (t *SaveCSVTool) save(text, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("title must not be empty")
	}
	if strings.ContainsAny(title, `/\`) || title == "." || title == ".." {
		return "", fmt.Errorf("invalid title %q", title)
	}

	dir := t.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}

	path, err := filepath.Abs(filepath.Join(dir, title+".csv"))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", err
	}
	return path, nil
}
