package classifier

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTree(t *testing.T) {
	m, err := Load("testdata/comfort.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Kind() != KindTree {
		t.Errorf("kind = %q, want %q", m.Kind(), KindTree)
	}
	if m.Name() != "comfort" {
		t.Errorf("name = %q, want comfort", m.Name())
	}

	tests := []struct {
		temp, hum float64
		want      Label
	}{
		{40, 30, "Hot"},
		{38.5, 70, "Hot"},
		{25, 50, "Normal"},
		{29, 90, "Hot"},
		{22.5, 50, "Cold"}, // threshold goes left
		{10, 99, "Cold"},
		{-40, 0, "Cold"},
	}
	for _, tt := range tests {
		if got := m.Classify(tt.temp, tt.hum); got != tt.want {
			t.Errorf("Classify(%v, %v) = %q, want %q", tt.temp, tt.hum, got, tt.want)
		}
	}
}

func TestLoadRulesJSON(t *testing.T) {
	m, err := Load("testdata/comfort_rules.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Kind() != KindRules {
		t.Errorf("kind = %q, want %q", m.Kind(), KindRules)
	}
	if !m.Has("Panas") || m.Has("Hot") {
		t.Errorf("unexpected label set %v", m.Labels())
	}

	tests := []struct {
		temp, hum float64
		want      Label
	}{
		{30, 10, "Panas"}, // min is inclusive
		{19.9, 50, "Dingin"},
		{20, 50, "Normal"}, // max is exclusive
		{28, 85, "Panas"},
		{28, 60, "Normal"},
	}
	for _, tt := range tests {
		if got := m.Classify(tt.temp, tt.hum); got != tt.want {
			t.Errorf("Classify(%v, %v) = %q, want %q", tt.temp, tt.hum, got, tt.want)
		}
	}
}

func TestClassifyIsTotal(t *testing.T) {
	m, err := Load("testdata/comfort.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), math.MaxFloat64, -math.MaxFloat64} {
		if got := m.Classify(v, v); !m.Has(got) {
			t.Errorf("Classify(%v) = %q, outside the declared labels", v, got)
		}
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), os.ErrNotExist},
		{"unknown feature", "testdata/corrupt.yaml", ErrUnknownFeature},
		{"unknown kind", write("k.yaml", "kind: forest\nlabels: [A]\n"), ErrUnknownKind},
		{"undeclared leaf", write("l.yaml", "kind: tree\nlabels: [A]\ntree: {label: B}\n"), ErrUnknownLabel},
		{"half split", write("h.yaml", "kind: tree\nlabels: [A]\ntree: {feature: humidity, threshold: 3, left: {label: A}}\n"), ErrBadNode},
		{"empty default", write("d.json", `{"kind":"rules","labels":["A"],"rules":[]}`), ErrEmptyLabel},
		{"inverted bound", write("b.json", `{"kind":"rules","labels":["A"],"default":"A","rules":[{"label":"A","humidity":{"min":5,"max":1}}]}`), ErrBadBound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Load(tt.path)
			if err == nil {
				t.Fatalf("Load succeeded with %v", m.Labels())
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("error %v is not a *LoadError", err)
			}
			if le.Path != tt.path {
				t.Errorf("LoadError.Path = %q, want %q", le.Path, tt.path)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error %v does not wrap %v", err, tt.want)
			}
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, data := range []string{"{", "kind: tree\nlabels: [A]\nextra: 1\n", ""} {
		if _, err := Parse([]byte(data), FormatYAML); err == nil {
			t.Errorf("Parse(%q) succeeded", data)
		}
	}
	if _, err := Parse([]byte(`{"kind":"rules","labels":["A"],"default":"A","bogus":true}`), FormatJSON); err == nil {
		t.Error("Parse accepted an unknown JSON field")
	}
}

func TestTreeTooDeep(t *testing.T) {
	leaf := &node{Label: "A"}
	root := leaf
	for i := 0; i <= MaxTreeDepth; i++ {
		threshold := float64(i)
		root = &node{Feature: Temperature, Threshold: &threshold, Left: root, Right: leaf}
	}
	a := artifact{Kind: KindTree, Labels: []Label{"A"}, Tree: root}
	if _, err := a.compile(); !errors.Is(err, ErrTooDeep) {
		t.Fatalf("compile error = %v, want %v", err, ErrTooDeep)
	}
}

func TestClassifierFunc(t *testing.T) {
	var c Classifier = ClassifierFunc(func(temperature, humidity float64) Label {
		if temperature > humidity {
			return "Hot"
		}
		return "Cold"
	})
	if got := c.Classify(2, 1); got != "Hot" {
		t.Errorf("got %q", got)
	}
}
