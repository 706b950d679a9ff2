// Package template models the synthesized CloudFormation template.
package template

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/apigwmock"
)

// Format is a template serialization format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Template is a CloudFormation template as emitted by the CDK.
type Template struct {
	AWSTemplateFormatVersion string              `json:"AWSTemplateFormatVersion,omitempty" yaml:"AWSTemplateFormatVersion,omitempty"`
	Description              string              `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]any      `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Conditions               map[string]any      `json:"Conditions,omitempty" yaml:"Conditions,omitempty"`
	Rules                    map[string]any      `json:"Rules,omitempty" yaml:"Rules,omitempty"`
	Resources                map[string]Resource `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output   `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// Resource is a single template resource.
type Resource struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           StringList     `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	Condition           string         `json:"Condition,omitempty" yaml:"Condition,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
	Metadata            map[string]any `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
}

// Output is a template output.
type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
	Export      any    `json:"Export,omitempty" yaml:"Export,omitempty"`
	Condition   string `json:"Condition,omitempty" yaml:"Condition,omitempty"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("DependsOn must be a string or list of strings: %w", err)
	}
	*s = many
	return nil
}

// Parse decodes a JSON template.
func Parse(raw []byte) (*Template, error) {
	var tpl Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeTemplateInvalid, "decode template", err)
	}
	if len(tpl.Resources) == 0 {
		return nil, apigwmock.NewError(apigwmock.ErrorCodeTemplateInvalid, "template has no resources")
	}
	return &tpl, nil
}

// FromMap converts a decoded template document, such as the one returned by
// a cloud assembly stack artifact, into a Template.
func FromMap(doc map[string]any) (*Template, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeTemplateInvalid, "encode template", err)
	}
	return Parse(raw)
}

// LogicalIDs returns every resource logical id, sorted.
func (t *Template) LogicalIDs() []string {
	ids := make([]string, 0, len(t.Resources))
	for id := range t.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResourcesOfType returns the sorted logical ids of resources with the given type.
func (t *Template) ResourcesOfType(resourceType string) []string {
	var ids []string
	for id, res := range t.Resources {
		if res.Type == resourceType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// OutputNames returns the sorted output names.
func (t *Template) OutputNames() []string {
	names := make([]string, 0, len(t.Outputs))
	for name := range t.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write serializes the template in the given format.
func Write(w io.Writer, tpl *Template, format Format) error {
	if tpl == nil {
		return apigwmock.NewError(apigwmock.ErrorCodeTemplateInvalid, "template is nil")
	}
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(tpl)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tpl); err != nil {
			return err
		}
		return enc.Close()
	default:
		return apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid, "unsupported template format %q", format)
	}
}

// ServiceOf returns the service segment of a resource type, e.g. "ApiGateway"
// for "AWS::ApiGateway::RestApi".
func ServiceOf(resourceType string) string {
	parts := strings.Split(resourceType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}
