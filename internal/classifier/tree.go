package classifier

import "fmt"

// node is either a leaf carrying a label or a split on one feature.
// A split sends x[feature] <= threshold to the left child.
type node struct {
	Label     Label    `yaml:"label,omitempty" json:"label,omitempty"`
	Feature   Feature  `yaml:"feature,omitempty" json:"feature,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Left      *node    `yaml:"left,omitempty" json:"left,omitempty"`
	Right     *node    `yaml:"right,omitempty" json:"right,omitempty"`
}

func (n *node) leaf() bool {
	return n.Left == nil && n.Right == nil && n.Feature == "" && n.Threshold == nil
}

func (n *node) validate(check func(Label) error, depth int) error {
	if depth > MaxTreeDepth {
		return ErrTooDeep
	}
	if n.leaf() {
		return check(n.Label)
	}
	if n.Label != "" {
		return fmt.Errorf("%w: split node with label %q", ErrBadNode, n.Label)
	}
	if !n.Feature.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFeature, n.Feature)
	}
	if n.Threshold == nil || !finite(*n.Threshold) {
		return fmt.Errorf("%w: split on %s without a finite threshold", ErrBadNode, n.Feature)
	}
	if n.Left == nil || n.Right == nil {
		return fmt.Errorf("%w: split on %s needs both children", ErrBadNode, n.Feature)
	}
	if err := n.Left.validate(check, depth+1); err != nil {
		return err
	}
	return n.Right.validate(check, depth+1)
}

func (n *node) decide(temperature, humidity float64) Label {
	cur := n
	for !cur.leaf() {
		if cur.Feature.value(temperature, humidity) <= *cur.Threshold {
			cur = cur.Left
		} else {
			cur = cur.Right
		}
	}
	return cur.Label
}
