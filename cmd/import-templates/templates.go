package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
)

// templatesFile is the import format. A file holds either a list under
// "templates" or one template at the top level.
type templatesFile struct {
	Templates []dto.CreateTemplateRequest `yaml:"templates"`
}

func loadTemplatesFromYAML(path string) ([]dto.CreateTemplateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	return parseTemplates(data)
}

func parseTemplates(data []byte) ([]dto.CreateTemplateRequest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var file templatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal templates yaml: %w", err)
	}
	if len(file.Templates) > 0 {
		return file.Templates, nil
	}

	var single dto.CreateTemplateRequest
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("unmarshal template yaml: %w", err)
	}
	if single.Title == "" && len(single.Tasks) == 0 {
		return nil, nil
	}
	return []dto.CreateTemplateRequest{single}, nil
}
