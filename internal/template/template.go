// =============================================================================
// Bulk Importer - Import Templates
// =============================================================================
//
// This module loads and manages import templates. A template is the external
// configuration for one pipeline run: it names the destination collection,
// the required fields, the date-typed fields, and the per-field descriptions
// shown on the downloadable skeleton.
//
// TEMPLATE FILES:
//   Each YAML file in the templates directory defines one template.
//   New record types can be added without code changes.
//
//   Example (templates/vendors.yaml):
//     name: vendors
//     target_collection: vendors
//     required_fields: [vendorId, vendorName]
//     date_fields: [contractStart]
//     field_order: [vendorId, vendorName, contractStart, contactEmail]
//     field_descriptions:
//       vendorId: "Unique vendor identifier (required)"
//       vendorName: "Legal vendor name (required)"
//
// Templates are immutable once loaded; the pipeline never mutates them.
//
// =============================================================================

package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// TEMPLATE STRUCTURE
// =============================================================================

// Template is the external configuration for a single import run.
type Template struct {
	// Name identifies the template. Defaults to the file name (without
	// extension) when not set in the YAML.
	Name string `yaml:"name"`

	// TargetCollection is the destination collection in the record store.
	TargetCollection string `yaml:"target_collection"`

	// RequiredFields are the fields every row must supply, in declaration
	// order. The order is significant: the intra-file duplicate key is the
	// pipe-join of these values in this order.
	RequiredFields []string `yaml:"required_fields"`

	// DateFields are the fields parsed as calendar dates.
	DateFields []string `yaml:"date_fields"`

	// FieldOrder is the full column order for the downloadable skeleton.
	// Defaults to RequiredFields followed by any described fields not
	// already listed.
	FieldOrder []string `yaml:"field_order"`

	// FieldDescriptions maps a field name to the human-readable description
	// placed on the skeleton's description row.
	FieldDescriptions map[string]string `yaml:"field_descriptions"`
}

// IsRequired reports whether the field is in the required set.
func (t *Template) IsRequired(field string) bool {
	for _, f := range t.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

// IsDateField reports whether the field is date-typed.
func (t *Template) IsDateField(field string) bool {
	for _, f := range t.DateFields {
		if f == field {
			return true
		}
	}
	return false
}

// Fields returns the full ordered field set for the skeleton export.
func (t *Template) Fields() []string {
	return t.FieldOrder
}

// Description returns the description for a field, or "" if none is defined.
func (t *Template) Description(field string) string {
	return t.FieldDescriptions[field]
}

// =============================================================================
// TEMPLATE LOADING
// =============================================================================

// LoadAll loads every template from a directory.
//
// PARAMETERS:
//   - dir: The path to the directory containing template YAML files.
//
// RETURNS:
//   - A map of templates keyed by template name.
//   - An error if the directory cannot be read or any file is invalid.
func LoadAll(dir string) (map[string]*Template, error) {
	templates := make(map[string]*Template)

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		tpl, err := Load(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		templates[tpl.Name] = tpl
	}

	return templates, nil
}

// Load loads and validates a single template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyDefaults(&tpl, path)

	if err := validate(&tpl); err != nil {
		return nil, err
	}

	return &tpl, nil
}

// applyDefaults fills in the name and field order when the YAML omits them.
func applyDefaults(tpl *Template, path string) {
	if tpl.Name == "" {
		base := filepath.Base(path)
		tpl.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if len(tpl.FieldOrder) == 0 {
		seen := make(map[string]bool)
		for _, f := range tpl.RequiredFields {
			tpl.FieldOrder = append(tpl.FieldOrder, f)
			seen[f] = true
		}
		// Described optional fields follow the required set. Map iteration
		// order is not stable, so sort for a deterministic skeleton.
		var extra []string
		for f := range tpl.FieldDescriptions {
			if !seen[f] {
				extra = append(extra, f)
			}
		}
		sort.Strings(extra)
		tpl.FieldOrder = append(tpl.FieldOrder, extra...)
	}
}

// validate rejects templates the pipeline cannot run against.
func validate(tpl *Template) error {
	if tpl.TargetCollection == "" {
		return fmt.Errorf("template %q: target_collection is required", tpl.Name)
	}
	if len(tpl.RequiredFields) == 0 {
		return fmt.Errorf("template %q: at least one required field must be defined", tpl.Name)
	}
	for _, f := range tpl.RequiredFields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("template %q: required field names cannot be blank", tpl.Name)
		}
	}
	return nil
}
