// Package schema provides offline CloudFormation schema validation.
// It validates resources against the schemas of the resource types the
// OpenMind stack uses.
package schema

import (
	"fmt"
	"sort"
	"strings"

	openmind "github.com/openmind/openmind-infra"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties missing from the schema as warnings.
	Strict bool
}

// Error is a schema violation on one resource property.
type Error struct {
	Resource string `json:"resource"`
	Property string `json:"property,omitempty"`
	Message  string `json:"message"`
}

func (e Error) String() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Resource, e.Property, e.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Error `json:"errors,omitempty"`
	Warnings []Error `json:"warnings,omitempty"`
}

// ValidateTemplate validates a CloudFormation template against known schemas.
// Findings are ordered by resource and property.
func ValidateTemplate(template *openmind.Template, opts Options) *Result {
	result := &Result{Valid: true}

	for name, resource := range template.Resources {
		errs, warnings := validateResource(name, resource, opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	sortErrors(result.Errors)
	sortErrors(result.Warnings)
	result.Valid = len(result.Errors) == 0
	return result
}

// validateResource validates a single resource.
func validateResource(name string, resource openmind.ResourceDef, opts Options) ([]Error, []Error) {
	var errs, warnings []Error

	if !isValidResourceType(resource.Type) {
		errs = append(errs, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
		return errs, warnings
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, Error{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	for propName, propValue := range resource.Properties {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Error{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
			continue
		}
		errs = append(errs, validateProperty(name, propName, propValue, propSchema)...)
	}

	return errs, warnings
}

// isValidResourceType checks if a resource type has valid format.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS" && parts[1] != "" && parts[2] != ""
}

// validateProperty validates a property value against its schema.
func validateProperty(resource, property string, value any, schema PropertySchema) []Error {
	var errs []Error

	if !isValidType(value, schema.Type) {
		errs = append(errs, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
	}

	if len(schema.AllowedValues) > 0 {
		if strVal, ok := value.(string); ok && !contains(schema.AllowedValues, strVal) {
			errs = append(errs, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
			})
		}
	}

	return errs
}

// isValidType checks if a value matches the expected type.
// Intrinsic functions match any type.
func isValidType(value any, expectedType string) bool {
	if m, ok := value.(map[string]any); ok && len(m) == 1 {
		for key := range m {
			if strings.HasPrefix(key, "Fn::") || key == "Ref" {
				return true
			}
		}
	}

	switch expectedType {
	case String:
		_, ok := value.(string)
		return ok
	case Integer:
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case Boolean:
		_, ok := value.(bool)
		return ok
	case List:
		_, ok := value.([]any)
		return ok
	case Map:
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func sortErrors(errs []Error) {
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Resource != errs[j].Resource {
			return errs[i].Resource < errs[j].Resource
		}
		return errs[i].Property < errs[j].Property
	})
}
