package tasks

import (
	"errors"
	"testing"
)

func validDefinition(name Name) Definition {
	return Definition{
		Name:           name,
		TaskDefinition: "Code each sentence.",
		InputFormat:    "A memory.",
		OutputFormat:   "The memory with codes.",
		Codes:          []CodeStyle{{Code: "_x_", Markup: "**x**"}},
		Legend:         "x",
	}
}

func TestDefault_AllBuiltinsValid(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("len(Names()) = %d, want 2", len(names))
	}
	if names[0] != SegmentLocusValence || names[1] != SentenceCoherence {
		t.Errorf("Names() = %v, want [%s %s]", names, SegmentLocusValence, SentenceCoherence)
	}
	if r.Default() != SegmentLocusValence {
		t.Errorf("Default() = %q, want %q", r.Default(), SegmentLocusValence)
	}
}

func TestMustDefault_DoesNotPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustDefault() panicked: %v", r)
		}
	}()
	_ = MustDefault()
}

func TestGet_Unknown(t *testing.T) {
	r := MustDefault()
	_, err := r.Get("Narrative-Chronology")
	if !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("Get() error = %v, want ErrUnknownTask", err)
	}
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("Get() error type = %T, want *ConfigurationError", err)
	}
	if ce.Task != "Narrative-Chronology" {
		t.Errorf("ConfigurationError.Task = %q", ce.Task)
	}
}

func TestNew_MissingAttribute(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Definition)
	}{
		{"name", func(d *Definition) { d.Name = "" }},
		{"task_definition", func(d *Definition) { d.TaskDefinition = "" }},
		{"input_format", func(d *Definition) { d.InputFormat = "" }},
		{"output_format", func(d *Definition) { d.OutputFormat = "" }},
		{"codes", func(d *Definition) { d.Codes = nil }},
		{"codes[0]", func(d *Definition) { d.Codes[0].Markup = "" }},
		{"legend", func(d *Definition) { d.Legend = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			d := validDefinition("T")
			tt.mutate(&d)

			_, err := New(validDefinition("ok"), d)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("New() error = %v, want *ConfigurationError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestNew_EmptyExamplesAllowed(t *testing.T) {
	d := validDefinition("T")
	d.CorrectExamples = nil
	d.IncorrectExamples = nil
	if _, err := New(d); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

func TestNew_Duplicate(t *testing.T) {
	_, err := New(validDefinition("T"), validDefinition("T"))
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("New() error = %v, want *ConfigurationError", err)
	}
}

func TestNew_Empty(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("New() with no definitions should fail")
	}
}

func TestSegmentLocusValence_Codes(t *testing.T) {
	d, err := MustDefault().Get(SegmentLocusValence)
	if err != nil {
		t.Fatal(err)
	}
	markup := d.CodeMarkup()
	if len(markup) != 6 {
		t.Fatalf("len(CodeMarkup()) = %d, want 6", len(markup))
	}
	want := `:blue-background[:red[***\_int\_neg\_***]]`
	if got := markup["_int_neg_"]; got != want {
		t.Errorf("markup[_int_neg_] = %q, want %q", got, want)
	}
	if got := markup["_ext_posit_"]; got != `:gray-background[:green[***\_ext\_posit\_***]]` {
		t.Errorf("markup[_ext_posit_] = %q", got)
	}
	wantLegend := ":blue-background[int], :gray-background[ext], :red[neg], :orange[neu], :green[posit]"
	if d.Legend != wantLegend {
		t.Errorf("Legend = %q, want %q", d.Legend, wantLegend)
	}
}

func TestSentenceCoherence_Codes(t *testing.T) {
	d, err := MustDefault().Get(SentenceCoherence)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.CodeMarkup()["_mid_"]; got != `:gray-background[:orange[***\_mid\_***]]` {
		t.Errorf("markup[_mid_] = %q", got)
	}
	if d.Legend != ":red[low], :orange[mid], :green[high]" {
		t.Errorf("Legend = %q", d.Legend)
	}
	if len(d.IncorrectExamples) != 0 {
		t.Errorf("IncorrectExamples = %d, want 0", len(d.IncorrectExamples))
	}
}

func TestExample_IsPlain(t *testing.T) {
	if !Plain("INPUT: a").IsPlain() {
		t.Error("Plain().IsPlain() = false")
	}
	if Structured("a", "b", "").IsPlain() {
		t.Error("Structured().IsPlain() = true")
	}
}
