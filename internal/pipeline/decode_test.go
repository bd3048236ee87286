package pipeline

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeAccepts(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		payload   string
		temp, hum float64
	}{
		{"numbers", `{"temp": 38.5, "hum": 70}`, 38.5, 70},
		{"integers", `{"temp":40,"hum":30}`, 40, 30},
		{"negative", `{"temp": -5.25, "hum": 0}`, -5.25, 0},
		{"numeric strings", `{"temp": "21.5", "hum": " 45 "}`, 21.5, 45},
		{"extra fields", `{"id":"esp32-1","temp":25,"hum":60,"rssi":-70}`, 25, 60},
		{"exponent", `{"temp": 2.5e1, "hum": 1E2}`, 25, 100},
		{"zero strings", `{"temp": "0", "hum": "+0.5"}`, 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode([]byte(tt.payload), at)
			if err != nil {
				t.Fatalf("Decode(%s) failed: %v", tt.payload, err)
			}
			if r.Temperature != tt.temp || r.Humidity != tt.hum {
				t.Errorf("got (%v, %v), want (%v, %v)", r.Temperature, r.Humidity, tt.temp, tt.hum)
			}
			if !r.Timestamp.Equal(at) {
				t.Errorf("timestamp = %v, want %v", r.Timestamp, at)
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
		field   string
		reason  string
	}{
		{"missing temp", `{"hum": 50}`, ErrMissingField, FieldTemperature, "missing_field"},
		{"missing hum", `{"temp": 50}`, ErrMissingField, FieldHumidity, "missing_field"},
		{"null temp", `{"temp": null, "hum": 50}`, ErrMissingField, FieldTemperature, "missing_field"},
		{"field names are case sensitive", `{"TEMP": 1, "HUM": 2}`, ErrMissingField, FieldTemperature, "missing_field"},
		{"empty object", `{}`, ErrMissingField, FieldTemperature, "missing_field"},
		{"text", `{"temp": "hot", "hum": 50}`, ErrNotNumeric, FieldTemperature, "not_numeric"},
		{"boolean", `{"temp": 20, "hum": true}`, ErrNotNumeric, FieldHumidity, "not_numeric"},
		{"object", `{"temp": {"v": 1}, "hum": 2}`, ErrNotNumeric, FieldTemperature, "not_numeric"},
		{"array", `{"temp": [1], "hum": 2}`, ErrNotNumeric, FieldTemperature, "not_numeric"},
		{"overflow", `{"temp": 1e400, "hum": 2}`, ErrNotNumeric, FieldTemperature, "not_numeric"},
		{"nan string", `{"temp": "NaN", "hum": 2}`, ErrNotNumeric, FieldTemperature, "not_numeric"},
		{"inf string", `{"temp": 1, "hum": "-Inf"}`, ErrNotNumeric, FieldHumidity, "not_numeric"},
		{"hex string", `{"temp": "0x1p5", "hum": 2}`, ErrNotNumeric, FieldTemperature, "not_numeric"},
		{"signed hex string", `{"temp": 20, "hum": "-0X1.8p1"}`, ErrNotNumeric, FieldHumidity, "not_numeric"},
		{"not json", `temp=40;hum=30`, ErrMalformed, "", "malformed"},
		{"truncated", `{"temp": 40, "hum":`, ErrMalformed, "", "malformed"},
		{"array payload", `[40, 30]`, ErrMalformed, "", "malformed"},
		{"bare number", `40`, ErrMalformed, "", "malformed"},
		{"empty", ``, ErrMalformed, "", "malformed"},
		{"invalid utf-8", "{\"temp\": 1, \"hum\": 2, \"x\": \"\xff\"}", ErrMalformed, "", "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload), time.Now())
			if err == nil {
				t.Fatalf("Decode(%q) succeeded", tt.payload)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error %v is not a *DecodeError", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error %v does not wrap %v", err, tt.want)
			}
			if de.Field != tt.field {
				t.Errorf("field = %q, want %q", de.Field, tt.field)
			}
			if de.Reason() != tt.reason {
				t.Errorf("reason = %q, want %q", de.Reason(), tt.reason)
			}
		})
	}
}
