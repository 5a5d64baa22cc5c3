package config

import (
	_ "embed"
	"fmt"
	"os"

	"use_of_force/internal/domain/notification"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Templates maps each notification kind to the template id the email provider knows it by.
type Templates map[notification.Kind]string

type templatesFile struct {
	Templates map[string]string `yaml:"templates"`
}

// LoadTemplates reads the template catalogue from path, or the built-in one when path is empty.
// Every notification kind must have an entry.
func LoadTemplates(path string) (Templates, error) {
	data := defaultTemplates
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading templates file: %w", err)
		}
	}
	return ParseTemplates(data)
}

func ParseTemplates(data []byte) (Templates, error) {
	var file templatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}

	templates := make(Templates, len(file.Templates))
	for kind, id := range file.Templates {
		templates[notification.Kind(kind)] = id
	}

	for _, kind := range notification.Kinds {
		if templates[kind] == "" {
			return nil, fmt.Errorf("no template configured for %s", kind)
		}
	}
	return templates, nil
}
