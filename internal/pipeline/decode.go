package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Lzetgo0/SIC7/internal/observation"
)

const (
	FieldTemperature = "temp"
	FieldHumidity    = "hum"
)

var (
	ErrMalformed    = errors.New("malformed payload")
	ErrMissingField = errors.New("missing field")
	ErrNotNumeric   = errors.New("not a finite number")
)

// DecodeError reports why a sensor payload was rejected. Err is one of
// ErrMalformed, ErrMissingField or ErrNotNumeric.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Reason is a short identifier of the failure, suitable for a metric label.
func (e *DecodeError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return "missing_field"
	case errors.Is(e.Err, ErrNotNumeric):
		return "not_numeric"
	default:
		return "malformed"
	}
}

// Decode parses a sensor payload such as {"temp": 38.5, "hum": 70}. Field names
// are matched exactly and other fields are ignored. Values may be JSON numbers or
// strings holding a decimal number; anything else, including null, booleans and
// non-finite values, is rejected.
func Decode(payload []byte, received time.Time) (observation.Reading, error) {
	if !utf8.Valid(payload) {
		return observation.Reading{}, &DecodeError{Err: fmt.Errorf("%w: invalid UTF-8", ErrMalformed)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return observation.Reading{}, &DecodeError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	temp, err := number(fields, FieldTemperature)
	if err != nil {
		return observation.Reading{}, err
	}
	hum, err := number(fields, FieldHumidity)
	if err != nil {
		return observation.Reading{}, err
	}

	return observation.Reading{
		Timestamp:   received,
		Temperature: temp,
		Humidity:    hum,
	}, nil
}

func number(fields map[string]json.RawMessage, field string) (float64, error) {
	raw, ok := fields[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return 0, &DecodeError{Field: field, Err: ErrMissingField}
	}

	var f float64
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, &DecodeError{Field: field, Err: fmt.Errorf("%w: %v", ErrNotNumeric, err)}
		}
		s = strings.TrimSpace(s)
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || isHexFloat(s) {
			return 0, &DecodeError{Field: field, Err: fmt.Errorf("%w: %q", ErrNotNumeric, s)}
		}
		f = v
	case c == '-' || (c >= '0' && c <= '9'):
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, &DecodeError{Field: field, Err: fmt.Errorf("%w: %v", ErrNotNumeric, err)}
		}
	default:
		return 0, &DecodeError{Field: field, Err: fmt.Errorf("%w: %s", ErrNotNumeric, raw)}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &DecodeError{Field: field, Err: fmt.Errorf("%w: %v", ErrNotNumeric, f)}
	}
	return f, nil
}

// isHexFloat reports hexadecimal notation, which ParseFloat accepts but sensors
// never send.
func isHexFloat(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
