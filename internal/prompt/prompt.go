// Package prompt composes the system instruction sent as the first message
// of every conversation. Composition is pure: the same task definition and
// interaction kind always produce byte-identical text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/HerbHall/narracode/internal/tasks"
)

// Kind is the interaction kind a prompt is composed for. It is also the
// "task" column of the generation log.
type Kind string

const (
	KindDirectCoding Kind = "direct_coding"
	KindChat         Kind = "chat"
)

// PrivateExamples resolves a private example reference to examples held
// outside this module.
type PrivateExamples interface {
	Resolve(ref string) []tasks.Example
}

// NoPrivateExamples resolves every reference to nothing. Private example
// storage has not been connected yet.
type NoPrivateExamples struct{}

// Resolve implements PrivateExamples.
func (NoPrivateExamples) Resolve(string) []tasks.Example { return nil }

// Composer builds system prompts from task definitions.
type Composer struct {
	private PrivateExamples
}

// NewComposer creates a Composer. A nil source behaves like NoPrivateExamples.
func NewComposer(private PrivateExamples) *Composer {
	if private == nil {
		private = NoPrivateExamples{}
	}
	return &Composer{private: private}
}

// Compose builds a system prompt without private examples.
func Compose(def tasks.Definition, kind Kind) string {
	return NewComposer(nil).SystemPrompt(def, kind)
}

// SystemPrompt builds the system instruction for def in the given kind.
// Any kind other than KindChat is composed as direct coding.
func (c *Composer) SystemPrompt(def tasks.Definition, kind Kind) string {
	var b strings.Builder
	b.WriteString(Preamble)
	b.WriteString("\n\nCODING SCHEME:\n")
	b.WriteString(def.TaskDefinition)

	if kind == KindChat {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, chatInstruction, def.InputFormat, def.OutputFormat)
	} else {
		b.WriteString("\n\nINPUT FORMAT:\n")
		b.WriteString(def.InputFormat)
		b.WriteString("\n\nOUTPUT FORMAT:\n")
		b.WriteString(def.OutputFormat)
		b.WriteString("\n")
		b.WriteString(StrictOutputReminder)
	}

	correct := c.withPrivate(def.CorrectExamples, def.PrivateCorrectRef)
	incorrect := c.withPrivate(def.IncorrectExamples, def.PrivateIncorrectRef)
	writeExamples(&b, correctExamplesTitle, "CORRECT", correct)
	writeExamples(&b, incorrectExamplesTitle, "INCORRECT", incorrect)

	return b.String()
}

func (c *Composer) withPrivate(public []tasks.Example, ref string) []tasks.Example {
	if ref == "" {
		return public
	}
	private := c.private.Resolve(ref)
	if len(private) == 0 {
		return public
	}
	out := make([]tasks.Example, 0, len(public)+len(private))
	out = append(out, public...)
	return append(out, private...)
}

// writeExamples appends a titled section; an empty list adds nothing.
func writeExamples(b *strings.Builder, title, outputPrefix string, examples []tasks.Example) {
	if len(examples) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(title)
	b.WriteString(":")
	for _, ex := range examples {
		writeExample(b, ex, outputPrefix)
	}
}

func writeExample(b *strings.Builder, ex tasks.Example, outputPrefix string) {
	if ex.IsPlain() {
		b.WriteString("\n")
		b.WriteString(ex.Text)
		return
	}
	if ex.Input != "" {
		b.WriteString("\nINPUT: ")
		b.WriteString(ex.Input)
	}
	if ex.Output != "" {
		b.WriteString("\n")
		if outputPrefix != "" {
			b.WriteString(outputPrefix)
			b.WriteString(" ")
		}
		b.WriteString("OUTPUT: ")
		b.WriteString(ex.Output)
	}
	if ex.Explanation != "" {
		b.WriteString("\nEXPLANATION: ")
		b.WriteString(ex.Explanation)
	}
}
