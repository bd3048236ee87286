package pipeline

import (
	"testing"

	"github.com/Lzetgo0/SIC7/internal/classifier"
)

func TestActuationIsTotal(t *testing.T) {
	tests := []struct {
		alarm classifier.Label
		label classifier.Label
		want  Command
	}{
		{"", "Hot", BuzzerOn},
		{"", "Normal", BuzzerOff},
		{"", "Cold", BuzzerOff},
		{"", "", BuzzerOff},
		{"", "hot", BuzzerOff},
		{"", "Scorching", BuzzerOff},
		{"Panas", "Panas", BuzzerOn},
		{"Panas", "Hot", BuzzerOff},
		{"Panas", "Dingin", BuzzerOff},
	}
	for _, tt := range tests {
		a := Actuation{AlarmLabel: tt.alarm}
		if got := a.Command(tt.label); got != tt.want {
			t.Errorf("Actuation{%q}.Command(%q) = %s, want %s", tt.alarm, tt.label, got, tt.want)
		}
	}
}
