package pipeline

import "github.com/Lzetgo0/SIC7/internal/classifier"

// Command is the token published to the actuator topic.
type Command string

const (
	BuzzerOn  Command = "BUZZER_ON"
	BuzzerOff Command = "BUZZER_OFF"
)

const DefaultAlarmLabel classifier.Label = "Hot"

// Actuation maps a category to a command: only AlarmLabel turns the buzzer on,
// every other label, known or not, turns it off.
type Actuation struct {
	AlarmLabel classifier.Label
}

func (a Actuation) Command(label classifier.Label) Command {
	alarm := a.AlarmLabel
	if alarm == "" {
		alarm = DefaultAlarmLabel
	}
	switch label {
	case alarm:
		return BuzzerOn
	default:
		return BuzzerOff
	}
}
