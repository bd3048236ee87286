package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// MaxTreeDepth bounds the depth of a decision tree artifact.
const MaxTreeDepth = 64

var (
	ErrUnknownKind    = errors.New("unknown model kind")
	ErrUnknownFeature = errors.New("unknown feature")
	ErrUnknownLabel   = errors.New("label not declared in labels")
	ErrEmptyLabel     = errors.New("empty label")
	ErrBadNode        = errors.New("malformed tree node")
	ErrBadBound       = errors.New("malformed bound")
	ErrTooDeep        = errors.New("tree too deep")
)

// Format of a serialized model artifact.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

type artifact struct {
	Kind    Kind    `yaml:"kind" json:"kind"`
	Name    string  `yaml:"name,omitempty" json:"name,omitempty"`
	Labels  []Label `yaml:"labels" json:"labels"`
	Tree    *node   `yaml:"tree,omitempty" json:"tree,omitempty"`
	Rules   []rule  `yaml:"rules,omitempty" json:"rules,omitempty"`
	Default Label   `yaml:"default,omitempty" json:"default,omitempty"`
}

// Model is a loaded, validated classifier.
type Model struct {
	name   string
	kind   Kind
	labels []Label
	decide func(temperature, humidity float64) Label
}

func (m *Model) Classify(temperature, humidity float64) Label {
	return m.decide(temperature, humidity)
}

func (m *Model) Name() string {
	return m.name
}

func (m *Model) Kind() Kind {
	return m.kind
}

// Labels returns the closed set of categories the model may produce.
func (m *Model) Labels() []Label {
	return append([]Label(nil), m.labels...)
}

// Has tells whether label belongs to the model's declared set.
func (m *Model) Has(label Label) bool {
	for _, l := range m.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Load reads and validates the model artifact at path. The format follows the
// file extension: .json is JSON, anything else is YAML.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	m, err := Parse(data, format)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	if m.name == "" {
		m.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// Parse decodes and validates a model artifact held in memory.
func Parse(data []byte, format Format) (*Model, error) {
	var a artifact
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return nil, &LoadError{Err: err}
		}
	case FormatYAML:
		if err := yaml.UnmarshalStrict(data, &a); err != nil {
			return nil, &LoadError{Err: err}
		}
	default:
		return nil, &LoadError{Err: fmt.Errorf("unsupported format %q", format)}
	}

	m, err := a.compile()
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return m, nil
}

func (a *artifact) compile() (*Model, error) {
	if len(a.Labels) == 0 {
		return nil, fmt.Errorf("no labels declared")
	}
	declared := make(map[Label]bool, len(a.Labels))
	for _, l := range a.Labels {
		if l == "" {
			return nil, ErrEmptyLabel
		}
		declared[l] = true
	}
	check := func(l Label) error {
		if l == "" {
			return ErrEmptyLabel
		}
		if !declared[l] {
			return fmt.Errorf("%w: %q", ErrUnknownLabel, l)
		}
		return nil
	}

	m := &Model{
		name:   a.Name,
		kind:   a.Kind,
		labels: append([]Label(nil), a.Labels...),
	}

	switch a.Kind {
	case KindTree:
		if a.Tree == nil {
			return nil, fmt.Errorf("%w: missing tree", ErrBadNode)
		}
		if err := a.Tree.validate(check, 0); err != nil {
			return nil, err
		}
		root := a.Tree
		m.decide = root.decide
	case KindRules:
		for i := range a.Rules {
			if err := a.Rules[i].validate(check); err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
		}
		if err := check(a.Default); err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		table := ruleTable{rules: a.Rules, fallback: a.Default}
		m.decide = table.decide
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	return m, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
