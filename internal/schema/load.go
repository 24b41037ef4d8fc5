package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for schema files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported schema file format")

// file is the on-disk shape of a schema document.
//
//	fields:
//	  - name: status
//	    label: Status
//	    operators: [":", "!="]
//	    valueType: enum
//	    enumValues: [success, failed]
//	    allowMultiSelect: true
//	    allowNegation: true
type file struct {
	Fields []FieldRule `json:"fields" yaml:"fields"`
}

// Load reads a schema file. The format follows the extension:
// .yaml/.yml for YAML, .json for JSON.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %q: %w", path, err)
	}
	s, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load schema %q: %w", path, err)
	}
	return s, nil
}

// Decode parses a schema document. ext selects the format (".yaml", ".yml",
// ".json").
func Decode(data []byte, ext string) (*Schema, error) {
	var f file
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return New(f.Fields...)
}

// Encode renders s as a YAML schema document.
func Encode(s *Schema) ([]byte, error) {
	out, err := yaml.Marshal(file{Fields: s.Rules()})
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return out, nil
}
