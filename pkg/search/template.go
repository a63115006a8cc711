package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTemplate reads index settings and mappings from a YAML or JSON file.
// An empty path yields an empty template, leaving shape to the cluster defaults.
func LoadTemplate(path string) (Template, error) {
	if path == "" {
		return Template{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index template: %w", err)
	}

	// JSON is valid YAML, so one decoder covers both formats
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse index template %s: %w", path, err)
	}
	if tmpl == nil {
		tmpl = Template{}
	}

	for key := range tmpl {
		switch key {
		case "settings", "mappings", "aliases":
		default:
			return nil, fmt.Errorf("unexpected top-level key %q in index template %s", key, path)
		}
	}
	if _, ok := tmpl["aliases"]; ok {
		// Alias bindings are owned by the version manager
		return nil, fmt.Errorf("index template %s must not declare aliases", path)
	}

	return tmpl, nil
}
