// Package classifier maps a (temperature, humidity) pair to a comfort category.
//
// A classifier is loaded once from a model artifact at start-up and is immutable
// afterwards, so a single instance can be shared by every goroutine.
package classifier

import "fmt"

// Label is a comfort category produced by a classifier, e.g. "Hot", "Normal" or "Cold".
type Label string

func (l Label) String() string {
	return string(l)
}

// Classifier is a pure decision function over finite inputs.
type Classifier interface {
	Classify(temperature, humidity float64) Label
}

// ClassifierFunc adapts an ordinary function to the Classifier interface.
type ClassifierFunc func(temperature, humidity float64) Label

func (f ClassifierFunc) Classify(temperature, humidity float64) Label {
	return f(temperature, humidity)
}

// Feature names an input of the decision function.
type Feature string

const (
	Temperature Feature = "temperature"
	Humidity    Feature = "humidity"
)

func (f Feature) valid() bool {
	return f == Temperature || f == Humidity
}

func (f Feature) value(temperature, humidity float64) float64 {
	if f == Humidity {
		return humidity
	}
	return temperature
}

// Kind is the decision procedure declared by a model artifact.
type Kind string

const (
	KindTree  Kind = "tree"
	KindRules Kind = "rules"
)

// LoadError reports a model artifact that could not be read or validated.
// The process must not start serving when it happens.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("classifier: invalid model: %v", e.Err)
	}
	return fmt.Sprintf("classifier: cannot load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
