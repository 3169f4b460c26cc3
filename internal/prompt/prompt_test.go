package prompt

import (
	"strings"
	"testing"

	"github.com/HerbHall/narracode/internal/tasks"
	"github.com/HerbHall/narracode/internal/testutil"
)

func builtinDefinitions(t *testing.T) []tasks.Definition {
	t.Helper()
	r := tasks.MustDefault()
	var defs []tasks.Definition
	for _, name := range r.Names() {
		d, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		defs = append(defs, d)
	}
	return defs
}

func TestCompose_Deterministic(t *testing.T) {
	for _, def := range builtinDefinitions(t) {
		for _, kind := range []Kind{KindDirectCoding, KindChat} {
			first := Compose(def, kind)
			second := Compose(def, kind)
			if first != second {
				t.Errorf("%s/%s: Compose() not deterministic", def.Name, kind)
			}
		}
	}
}

func TestCompose_DirectContainsFormatsOnce(t *testing.T) {
	for _, def := range builtinDefinitions(t) {
		got := Compose(def, KindDirectCoding)
		if n := strings.Count(got, def.InputFormat); n != 1 {
			t.Errorf("%s: input format appears %d times, want 1", def.Name, n)
		}
		if n := strings.Count(got, def.OutputFormat); n != 1 {
			t.Errorf("%s: output format appears %d times, want 1", def.Name, n)
		}
		if !strings.Contains(got, "INPUT FORMAT:\n"+def.InputFormat) {
			t.Errorf("%s: missing INPUT FORMAT section", def.Name)
		}
		if !strings.Contains(got, "\n"+StrictOutputReminder) {
			t.Errorf("%s: missing strict output reminder", def.Name)
		}
		if strings.Contains(got, NoAutoFormatInstruction) {
			t.Errorf("%s: direct prompt carries the chat instruction", def.Name)
		}
	}
}

func TestCompose_ChatDistinguishable(t *testing.T) {
	for _, def := range builtinDefinitions(t) {
		chat := Compose(def, KindChat)
		direct := Compose(def, KindDirectCoding)
		if chat == direct {
			t.Fatalf("%s: chat and direct prompts are identical", def.Name)
		}
		if !strings.Contains(chat, NoAutoFormatInstruction) {
			t.Errorf("%s: chat prompt missing no-auto-format instruction", def.Name)
		}
		if !strings.Contains(chat, "ORIGINAL INPUT FORMAT:\n```\n"+def.InputFormat+"\n```") {
			t.Errorf("%s: chat prompt missing fenced input format", def.Name)
		}
		if !strings.Contains(chat, "ORIGINAL OUTPUT FORMAT:\n```\n"+def.OutputFormat+"\n```") {
			t.Errorf("%s: chat prompt missing fenced output format", def.Name)
		}
		if strings.Contains(chat, StrictOutputReminder) {
			t.Errorf("%s: chat prompt carries the strict output reminder", def.Name)
		}
	}
}

func TestCompose_NoExamplesNoSection(t *testing.T) {
	def := testutil.NewDefinition()
	for _, kind := range []Kind{KindDirectCoding, KindChat} {
		got := Compose(def, kind)
		if strings.Contains(got, "EXAMPLES FOR") {
			t.Errorf("%s: prompt without examples contains an examples section", kind)
		}
	}
}

func TestCompose_ExactLayout(t *testing.T) {
	def := testutil.NewDefinition()
	def.CorrectExamples = []tasks.Example{
		tasks.Structured("in1", "out1", "because"),
		tasks.Plain("INPUT: raw\nOUTPUT: raw coded"),
	}
	def.IncorrectExamples = []tasks.Example{
		tasks.Structured("", "out2", ""),
	}

	want := Preamble +
		"\n\nCODING SCHEME:\nScore chronology from 0 to 3." +
		"\n\nINPUT FORMAT:\nA narrative." +
		"\n\nOUTPUT FORMAT:\nA single integer." +
		"\n" + StrictOutputReminder +
		"\n\nEXAMPLES FOR CORRECT CODINGS:" +
		"\nINPUT: in1\nCORRECT OUTPUT: out1\nEXPLANATION: because" +
		"\nINPUT: raw\nOUTPUT: raw coded" +
		"\n\nEXAMPLES FOR INCORRECT CODINGS:" +
		"\nINCORRECT OUTPUT: out2"

	if got := Compose(def, KindDirectCoding); got != want {
		t.Errorf("Compose() =\n%s\n\nwant\n%s", got, want)
	}
}

func TestCompose_OnlyIncorrectExamples(t *testing.T) {
	def := testutil.NewDefinition(testutil.WithIncorrectExamples(tasks.Structured("a", "b", "c")))
	got := Compose(def, KindDirectCoding)
	if strings.Contains(got, correctExamplesTitle+":") {
		t.Error("correct examples section rendered for an empty list")
	}
	if !strings.Contains(got, incorrectExamplesTitle+":\nINPUT: a\nINCORRECT OUTPUT: b\nEXPLANATION: c") {
		t.Errorf("incorrect section not rendered as expected:\n%s", got)
	}
}

func TestCompose_SegmentLocusValence(t *testing.T) {
	def, err := tasks.MustDefault().Get(tasks.SegmentLocusValence)
	if err != nil {
		t.Fatal(err)
	}
	got := Compose(def, KindDirectCoding)
	for _, want := range []string{"internal", "external", "\nINPUT: I'm on stage", "CORRECT OUTPUT: I'm on stage _int_neu_", "INCORRECT OUTPUT: When I was at the beach"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

type fakePrivate map[string][]tasks.Example

func (f fakePrivate) Resolve(ref string) []tasks.Example { return f[ref] }

func TestComposer_PrivateExamplesAppended(t *testing.T) {
	def := testutil.NewDefinition(
		testutil.WithCorrectExamples(tasks.Plain("public")),
		testutil.WithPrivateRefs("sheet-correct", "sheet-incorrect"),
	)

	c := NewComposer(fakePrivate{
		"sheet-correct":   {tasks.Plain("private")},
		"sheet-incorrect": {tasks.Plain("wrong")},
	})
	got := c.SystemPrompt(def, KindDirectCoding)
	if !strings.Contains(got, correctExamplesTitle+":\npublic\nprivate") {
		t.Errorf("private correct examples not appended after public ones:\n%s", got)
	}
	if !strings.Contains(got, incorrectExamplesTitle+":\nwrong") {
		t.Errorf("private incorrect examples not rendered:\n%s", got)
	}
}

func TestComposer_StubResolvesNothing(t *testing.T) {
	def := testutil.NewDefinition(testutil.WithPrivateRefs("sheet", ""))
	if got := NewComposer(nil).SystemPrompt(def, KindChat); strings.Contains(got, "EXAMPLES FOR") {
		t.Error("stub private source produced examples")
	}
}
