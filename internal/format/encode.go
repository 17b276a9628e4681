package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output selects how one-shot results are printed.
type Output string

const (
	OutputText Output = "text"
	OutputJSON Output = "json"
	OutputYAML Output = "yaml"
)

// ParseOutput validates an output kind.
func ParseOutput(value string) (Output, error) {
	switch Output(strings.ToLower(strings.TrimSpace(value))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	case OutputYAML:
		return OutputYAML, nil
	}
	return "", fmt.Errorf("unsupported output %q (want text, json or yaml)", value)
}

// Encode renders v as JSON or YAML.
func Encode(kind Output, v any) (string, error) {
	switch kind {
	case OutputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case OutputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	return "", fmt.Errorf("output %q is not structured", kind)
}
