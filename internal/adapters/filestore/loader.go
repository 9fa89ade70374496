// Package filestore reads checklist templates and answer sheets from YAML
// (or JSON) files on disk.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"millaudit/internal/domain"
)

// LoadDir reads every *.yaml, *.yml and *.json file directly under dir.
// Files are read in name order; a file may hold several templates as
// separate YAML documents.
func LoadDir(dir string) ([]domain.ChecklistTemplate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []domain.ChecklistTemplate
	for _, name := range names {
		ts, err := LoadTemplateFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, ts...)
	}
	return out, nil
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadTemplateFile decodes every template document in path. Unknown keys
// are rejected so typos in field names do not silently drop config.
func LoadTemplateFile(path string) ([]domain.ChecklistTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	ts, err := DecodeTemplates(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

// DecodeTemplates decodes one or more YAML documents into templates.
func DecodeTemplates(data []byte) ([]domain.ChecklistTemplate, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var out []domain.ChecklistTemplate
	for {
		var t domain.ChecklistTemplate
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: decode template: %v", domain.ErrInvalidInput, err)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no template found", domain.ErrInvalidInput)
	}
	return out, nil
}

// LoadResponsesFile reads an answer sheet: a mapping of item id to raw
// answer. Values keep their YAML types (bool, number, string, null) and are
// parsed against the template later.
func LoadResponsesFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}
