package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed configuration_schema.json
var configurationSchema string

var schema = jsonschema.MustCompileString("configuration_schema.json", configurationSchema)

// LoadFile loads a declarative configuration document from a JSON or YAML
// file, validates it against the configuration schema and cross-checks the
// criterion references of every definition.
func LoadFile(filename string) (*Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	default:
		return LoadJSON(data)
	}
}

// LoadJSON loads a declarative configuration document from JSON bytes.
func LoadJSON(data []byte) (*Configuration, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return load(doc, data)
}

// LoadYAML loads a declarative configuration document from YAML bytes. The
// document is converted to its JSON form first so schema validation and
// decoding behave identically for both formats.
func LoadYAML(data []byte) (*Configuration, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert configuration to json: %w", err)
	}
	return LoadJSON(jsonData)
}

func load(doc any, data []byte) (*Configuration, error) {
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("configuration failed schema validation: %w", err)
	}
	var conf Configuration
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate cross-checks the configuration beyond what the schema expresses:
// every criterion reference of every definition must name a configured
// criteria field, and select fields that fetch options must declare both a
// value and a label property.
func (c *Configuration) Validate() error {
	for name, field := range c.CriteriaFields {
		if field.Type != FieldTypeSelect && field.Type != FieldTypeText {
			return fmt.Errorf("criteria field %s has unsupported type %q", name, field.Type)
		}
		if field.DataSet != "" && (field.ValueProperty == "" || field.LabelProperty == "") {
			return fmt.Errorf("criteria field %s declares dataSet %s without valueProperty/labelProperty", name, field.DataSet)
		}
	}
	for proofType, entry := range c.ProofTypes {
		if entry.Definition == nil {
			continue
		}
		for _, ref := range entry.Definition.Criteria {
			if ref.Page < 0 {
				return fmt.Errorf("proof type %s references criterion %s with negative page %d", proofType, ref.Name, ref.Page)
			}
			if _, ok := c.CriteriaFields[ref.Name]; !ok {
				return fmt.Errorf("proof type %s references unknown criterion %s", proofType, ref.Name)
			}
		}
	}
	return nil
}

// Merge combines another configuration document into this one. Criteria
// fields, messages and constants overwrite on key collision; proof types must
// not collide, duplicates are reported to the caller.
func (c *Configuration) Merge(other *Configuration) error {
	if other == nil {
		return nil
	}
	for name, field := range other.CriteriaFields {
		if c.CriteriaFields == nil {
			c.CriteriaFields = make(map[string]FieldConfig)
		}
		c.CriteriaFields[name] = field
	}
	for proofType, entry := range other.ProofTypes {
		if c.ProofTypes == nil {
			c.ProofTypes = make(map[string]ProofTypeEntry)
		}
		if _, ok := c.ProofTypes[proofType]; ok {
			return fmt.Errorf("proof type %s is declared more than once", proofType)
		}
		c.ProofTypes[proofType] = entry
	}
	for key, msg := range other.Messages {
		if c.Messages == nil {
			c.Messages = make(map[string]string)
		}
		c.Messages[key] = msg
	}
	for key, val := range other.Constants {
		if c.Constants == nil {
			c.Constants = make(map[string]any)
		}
		c.Constants[key] = val
	}
	return nil
}
