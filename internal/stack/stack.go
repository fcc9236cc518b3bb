// Package stack collects named CloudFormation resources and outputs into a template.
package stack

import (
	"errors"
	"fmt"

	openmind "github.com/openmind/openmind-infra"
	"github.com/openmind/openmind-infra/internal/template"
	"github.com/openmind/openmind-infra/intrinsics"
)

// Option modifies how a resource is registered.
type Option func(*template.Entry)

// DependsOn adds explicit dependencies on other logical IDs.
func DependsOn(ids ...string) Option {
	return func(e *template.Entry) {
		e.DependsOn = append(e.DependsOn, ids...)
	}
}

// Retain keeps the physical resource when it is deleted or replaced.
func Retain() Option {
	return func(e *template.Entry) {
		e.DeletionPolicy = "Retain"
		e.UpdateReplacePolicy = "Retain"
	}
}

// Stack is a registry of resources in declaration order.
type Stack struct {
	description string
	order       []string
	entries     map[string]template.Entry
	outputs     map[string]openmind.Output
	outputOrder []string
	errs        []error
}

// New creates an empty stack with the given template description.
func New(description string) *Stack {
	return &Stack{
		description: description,
		entries:     make(map[string]template.Entry),
		outputs:     make(map[string]openmind.Output),
	}
}

// Add registers a resource under logicalID and returns a Ref to it.
// Registration errors are collected and reported by Err and Template.
func (s *Stack) Add(logicalID string, r openmind.Resource, opts ...Option) intrinsics.Ref {
	switch {
	case logicalID == "":
		s.errs = append(s.errs, errors.New("resource with empty logical ID"))
	case r == nil:
		s.errs = append(s.errs, fmt.Errorf("resource %s is nil", logicalID))
	default:
		if _, exists := s.entries[logicalID]; exists {
			s.errs = append(s.errs, fmt.Errorf("duplicate logical ID %s", logicalID))
			break
		}
		entry := template.Entry{Resource: r}
		for _, opt := range opts {
			opt(&entry)
		}
		s.entries[logicalID] = entry
		s.order = append(s.order, logicalID)
	}
	return intrinsics.Ref{LogicalName: logicalID}
}

// Output registers a stack output.
func (s *Stack) Output(name string, output openmind.Output) {
	if _, exists := s.outputs[name]; exists {
		s.errs = append(s.errs, fmt.Errorf("duplicate output %s", name))
		return
	}
	s.outputs[name] = output
	s.outputOrder = append(s.outputOrder, name)
}

// Ref returns a Ref to a registered resource.
func (s *Stack) Ref(logicalID string) intrinsics.Ref {
	return intrinsics.Ref{LogicalName: logicalID}
}

// GetAtt returns a GetAtt reference to an attribute of a registered resource.
func (s *Stack) GetAtt(logicalID, attribute string) openmind.AttrRef {
	return openmind.AttrRef{Resource: logicalID, Attribute: attribute}
}

// Has reports whether logicalID is registered.
func (s *Stack) Has(logicalID string) bool {
	_, ok := s.entries[logicalID]
	return ok
}

// Resource returns the resource registered under logicalID.
func (s *Stack) Resource(logicalID string) (openmind.Resource, bool) {
	entry, ok := s.entries[logicalID]
	return entry.Resource, ok
}

// LogicalIDs returns the registered logical IDs in declaration order.
func (s *Stack) LogicalIDs() []string {
	return append([]string(nil), s.order...)
}

// Outputs returns the registered output names in declaration order.
func (s *Stack) Outputs() []string {
	return append([]string(nil), s.outputOrder...)
}

// Err returns the registration errors joined, or nil.
func (s *Stack) Err() error {
	return errors.Join(s.errs...)
}

// Template synthesizes the CloudFormation template.
func (s *Stack) Template() (*openmind.Template, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}

	builder := template.NewBuilder(s.entries)
	builder.SetDescription(s.description)
	for _, name := range s.outputOrder {
		builder.SetOutput(name, s.outputs[name])
	}
	return builder.Build()
}
