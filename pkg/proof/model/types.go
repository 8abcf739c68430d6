// Package model holds the declarative configuration a proof type is defined
// with. Configuration is loaded once at startup, validated, and treated as
// immutable thereafter; it is safe for unlimited concurrent readers.
package model

import "encoding/json"

// FieldType is the discriminant of a criteria field. Only the listed variants
// are accepted; the loader rejects anything else.
type FieldType string

const (
	FieldTypeSelect FieldType = "select"
	FieldTypeText   FieldType = "text"
)

// CriterionRef names a criterion and the wizard page it appears on.
type CriterionRef struct {
	Name string `json:"name" yaml:"name"`
	Page int    `json:"page" yaml:"page"`
}

// FixedValue is a statically declared option prepended ahead of fetched ones.
// Value and label may contain {{token}} placeholders.
type FixedValue struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldConfig describes one user-facing input of the criteria wizard.
type FieldConfig struct {
	Type                FieldType      `json:"type" yaml:"type"`
	Property            string         `json:"property" yaml:"property"`
	Label               string         `json:"label" yaml:"label"`
	IsRequired          bool           `json:"isRequired,omitempty" yaml:"isRequired"`
	Placeholder         string         `json:"placeholder,omitempty" yaml:"placeholder"`
	DataSet             string         `json:"dataSet,omitempty" yaml:"dataSet"`
	DataSetParams       map[string]any `json:"dataSetParams,omitempty" yaml:"dataSetParams"`
	ValueProperty       string         `json:"valueProperty,omitempty" yaml:"valueProperty"`
	LabelProperty       string         `json:"labelProperty,omitempty" yaml:"labelProperty"`
	FixedValues         []FixedValue   `json:"fixedValues,omitempty" yaml:"fixedValues"`
	DefaultDisplayValue string         `json:"defaultDisplayValue,omitempty" yaml:"defaultDisplayValue"`
}

// HasDataSet reports whether the field fetches its options from a dataset.
func (f FieldConfig) HasDataSet() bool {
	return f.DataSet != "" && f.ValueProperty != "" && f.LabelProperty != ""
}

// Lookup is a named auxiliary dataset fetch resolved before document
// rendering. Lookups must complete in a single page.
type Lookup struct {
	Name          string         `json:"name" yaml:"name"`
	DataSet       string         `json:"dataSet" yaml:"dataSet"`
	DataSetParams map[string]any `json:"dataSetParams,omitempty" yaml:"dataSetParams"`
}

// FieldValueType classifies a proof column's values for formatting.
type FieldValueType string

const (
	FieldValueTypeString FieldValueType = "string"
	FieldValueTypeDate   FieldValueType = "date"
	FieldValueTypeNumber FieldValueType = "number"
)

// FormatPercent renders a number field's values as "<2-decimal>%".
const FormatPercent = "percent"

// FieldSpec describes one column of the rendered proof document.
type FieldSpec struct {
	Property string         `json:"property" yaml:"property"`
	Label    string         `json:"label" yaml:"label"`
	Type     FieldValueType `json:"type,omitempty" yaml:"type"`
	Format   string         `json:"format,omitempty" yaml:"format"`
	Width    *int           `json:"width,omitempty" yaml:"width"`
}

// ProofSpec is the declarative blueprint of one proof type's output document.
// String fields may contain {{token}} placeholders resolved per request.
type ProofSpec struct {
	Period           string         `json:"period,omitempty" yaml:"period"`
	UseVersioning    bool           `json:"useVersioning,omitempty" yaml:"useVersioning"`
	SuggestedName    string         `json:"suggestedName,omitempty" yaml:"suggestedName"`
	Format           string         `json:"format,omitempty" yaml:"format"`
	Orientation      string         `json:"orientation,omitempty" yaml:"orientation"`
	Title            string         `json:"title,omitempty" yaml:"title"`
	Subtitle         string         `json:"subtitle,omitempty" yaml:"subtitle"`
	DataSet          string         `json:"dataSet,omitempty" yaml:"dataSet"`
	DataSetParams    map[string]any `json:"dataSetParams,omitempty" yaml:"dataSetParams"`
	NoResultsMessage string         `json:"noResultsMessage,omitempty" yaml:"noResultsMessage"`
	Lookups          []Lookup       `json:"lookups,omitempty" yaml:"lookups"`
	Fields           []FieldSpec    `json:"fields,omitempty" yaml:"fields"`
	WebPageURL       string         `json:"webPageUrl,omitempty" yaml:"webPageUrl"`
}

// Condition guards an override. Both sides are token templates; the override
// applies when the two resolve to the same string.
type Condition struct {
	Value    string `json:"value" yaml:"value"`
	Criteria string `json:"criteria" yaml:"criteria"`
}

// Override is a conditional patch onto the base ProofSpec. The patch is kept
// raw so only the keys the configuration actually declares are merged;
// top-level keys replace wholesale, arrays included.
type Override struct {
	Condition Condition                  `json:"condition" yaml:"condition"`
	ProofSpec map[string]json.RawMessage `json:"proofSpec" yaml:"proofSpec"`
}

// Definition is one declaratively configured proof type.
type Definition struct {
	Description string         `json:"description,omitempty" yaml:"description"`
	Criteria    []CriterionRef `json:"criteria,omitempty" yaml:"criteria"`
	ProofSpec   ProofSpec      `json:"proofSpec" yaml:"proofSpec"`
	Overrides   []Override     `json:"overrides,omitempty" yaml:"overrides"`
}

// ProofTypeEntry is one declaratively registered proof type. Criteria is a
// flat key-equality filter used when listing proof types for a given
// criteria set.
type ProofTypeEntry struct {
	Label      string            `json:"label" yaml:"label"`
	Category   string            `json:"category,omitempty" yaml:"category"`
	Criteria   map[string]string `json:"criteria,omitempty" yaml:"criteria"`
	Definition *Definition       `json:"definition,omitempty" yaml:"definition"`
}

// Configuration is the root declarative document a proof integration ships.
type Configuration struct {
	CriteriaFields map[string]FieldConfig    `json:"criteriaFields,omitempty" yaml:"criteriaFields"`
	ProofTypes     map[string]ProofTypeEntry `json:"proofTypes,omitempty" yaml:"proofTypes"`
	Messages       map[string]string         `json:"messages,omitempty" yaml:"messages"`
	Constants      map[string]any            `json:"constants,omitempty" yaml:"constants"`
}
