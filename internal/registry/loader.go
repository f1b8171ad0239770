package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/requirements.yaml
var embeddedRequirements []byte

// Format is a registry document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format by file extension; anything that is not
// .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadDefault builds the registry shipped with the binary.
func LoadDefault() (*Registry, error) {
	doc, err := Parse(embeddedRequirements, FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded registry: %w", err)
	}
	return New(doc, "embedded")
}

// LoadFile builds a registry from a YAML or JSON file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}
	doc, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing registry file %s: %w", path, err)
	}
	return New(doc, "file:"+path)
}

// Parse decodes a registry document. Unknown keys are rejected so a typo in
// a constraint name cannot silently drop the constraint.
func Parse(data []byte, format Format) (Document, error) {
	var doc Document

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decoding json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported registry format %q", format)
	}

	return doc, nil
}

// Marshal encodes a document in the given format.
func Marshal(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported registry format %q", format)
	}
}
