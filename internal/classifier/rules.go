package classifier

import "fmt"

// bound matches min <= x < max; a missing side is unbounded.
type bound struct {
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

func (b *bound) match(x float64) bool {
	if b == nil {
		return true
	}
	if b.Min != nil && x < *b.Min {
		return false
	}
	if b.Max != nil && x >= *b.Max {
		return false
	}
	return true
}

func (b *bound) validate() error {
	if b == nil {
		return nil
	}
	if b.Min != nil && !finite(*b.Min) || b.Max != nil && !finite(*b.Max) {
		return fmt.Errorf("%w: non-finite limit", ErrBadBound)
	}
	if b.Min != nil && b.Max != nil && *b.Min >= *b.Max {
		return fmt.Errorf("%w: min %v >= max %v", ErrBadBound, *b.Min, *b.Max)
	}
	return nil
}

type rule struct {
	Label       Label  `yaml:"label" json:"label"`
	Temperature *bound `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Humidity    *bound `yaml:"humidity,omitempty" json:"humidity,omitempty"`
}

func (r *rule) validate(check func(Label) error) error {
	if err := check(r.Label); err != nil {
		return err
	}
	if err := r.Temperature.validate(); err != nil {
		return fmt.Errorf("temperature: %w", err)
	}
	if err := r.Humidity.validate(); err != nil {
		return fmt.Errorf("humidity: %w", err)
	}
	return nil
}

// ruleTable returns the label of the first matching rule, in declaration order.
type ruleTable struct {
	rules    []rule
	fallback Label
}

func (t ruleTable) decide(temperature, humidity float64) Label {
	for i := range t.rules {
		r := &t.rules[i]
		if r.Temperature.match(temperature) && r.Humidity.match(humidity) {
			return r.Label
		}
	}
	return t.fallback
}
