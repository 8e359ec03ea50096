package taskdef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads a task-definition document from path. Relative paths are
// resolved against root (the workspace root), absolute paths are used
// as-is. The file must be the JSON document the registration API
// understands.
func Load(path, root string) (map[string]any, error) {
	if path == "" {
		return nil, fmt.Errorf("task definition path is required")
	}
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task definition file: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse task definition file %s: %w", path, err)
	}
	return doc, nil
}
