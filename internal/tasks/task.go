// Package tasks holds the registry of coding tasks: the declarative
// definition of every annotation scheme a researcher can apply to a memory
// narrative.
package tasks

import (
	"errors"
	"fmt"
)

// Name identifies a coding task.
type Name string

// Built-in coding tasks.
const (
	SegmentLocusValence Name = "Segment-Locus-Valence"
	SentenceCoherence   Name = "Sentence-Coherence"
)

// ErrUnknownTask is returned when a task name is not registered.
var ErrUnknownTask = errors.New("unknown coding task")

// ConfigurationError reports a task definition that cannot be used: a
// missing required attribute, a duplicate registration, or an unknown name.
type ConfigurationError struct {
	Task  Name
	Field string // Empty when the whole task is at fault.
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("coding task %q: %s: %v", e.Task, e.Field, e.Err)
	}
	return fmt.Sprintf("coding task %q: %v", e.Task, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

var errMissing = errors.New("required attribute is missing")

// Example is a few-shot example. When Text is set the example is a single
// pre-formatted string; otherwise it is the structured triple, where an
// empty field means the field is absent.
type Example struct {
	Text        string `yaml:"text,omitempty"`
	Input       string `yaml:"input,omitempty"`
	Output      string `yaml:"output,omitempty"`
	Explanation string `yaml:"explanation,omitempty"`
}

// Plain returns a pre-formatted example.
func Plain(text string) Example {
	return Example{Text: text}
}

// Structured returns an input/output example with an optional explanation.
func Structured(input, output, explanation string) Example {
	return Example{Input: input, Output: output, Explanation: explanation}
}

// IsPlain reports whether the example is a single pre-formatted string.
func (e Example) IsPlain() bool {
	return e.Text != ""
}

// CodeStyle maps a literal output code (e.g. "_int_neg_") to the markup
// used to highlight it.
type CodeStyle struct {
	Code   string `yaml:"code"`
	Markup string `yaml:"markup"`
}

// Definition is the immutable description of a coding task.
type Definition struct {
	Name              Name      `yaml:"name"`
	TaskDefinition    string    `yaml:"task_definition"`
	InputFormat       string    `yaml:"input_format"`
	OutputFormat      string    `yaml:"output_format"`
	CorrectExamples   []Example `yaml:"correct_examples"`
	IncorrectExamples []Example `yaml:"incorrect_examples"`

	// References to privately held examples. Resolution is an external
	// concern; an empty reference means there are none.
	PrivateCorrectRef   string `yaml:"private_correct_ref,omitempty"`
	PrivateIncorrectRef string `yaml:"private_incorrect_ref,omitempty"`

	Codes  []CodeStyle `yaml:"codes"`
	Legend string      `yaml:"legend"`
}

// Validate reports the first required attribute that is missing.
// Example lists and private references may legitimately be empty.
func (d Definition) Validate() error {
	required := []struct {
		field string
		set   bool
	}{
		{"name", d.Name != ""},
		{"task_definition", d.TaskDefinition != ""},
		{"input_format", d.InputFormat != ""},
		{"output_format", d.OutputFormat != ""},
		{"codes", len(d.Codes) > 0},
		{"legend", d.Legend != ""},
	}
	for _, r := range required {
		if !r.set {
			return &ConfigurationError{Task: d.Name, Field: r.field, Err: errMissing}
		}
	}
	for i, c := range d.Codes {
		if c.Code == "" || c.Markup == "" {
			return &ConfigurationError{Task: d.Name, Field: fmt.Sprintf("codes[%d]", i), Err: errMissing}
		}
	}
	return nil
}

// CodeMarkup returns the code-to-markup mapping.
func (d Definition) CodeMarkup() map[string]string {
	m := make(map[string]string, len(d.Codes))
	for _, c := range d.Codes {
		m[c.Code] = c.Markup
	}
	return m
}
