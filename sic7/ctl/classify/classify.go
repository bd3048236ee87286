package classify

import (
	"github.com/spf13/cobra"

	"github.com/Lzetgo0/SIC7/internal/classifier"
	"github.com/Lzetgo0/SIC7/internal/pipeline"
	"github.com/Lzetgo0/SIC7/sic7/ctl/options"
)

var flags struct {
	model       string
	temperature float64
	humidity    float64
	alarmLabel  string
}

type Result struct {
	Model       string           `json:"model" yaml:"model"`
	Temperature float64          `json:"temperature" yaml:"temperature"`
	Humidity    float64          `json:"humidity" yaml:"humidity"`
	Predicted   classifier.Label `json:"predicted" yaml:"predicted"`
	Command     pipeline.Command `json:"command" yaml:"command"`
	Known       bool             `json:"known" yaml:"known"`
}

var Cmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one reading offline and show the resulting buzzer command",
	Example: `  sic7 classify --temp 31.2 --hum 60
  sic7 classify --model comfort_rules.json --temp 18 --hum 40 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		model := flags.model
		if model == "" {
			model = options.ViperConfig.GetString("model.path")
		}
		alarm := flags.alarmLabel
		if alarm == "" {
			alarm = options.ViperConfig.GetString("actuation.alarm_label")
		}

		r, err := Classify(model, flags.temperature, flags.humidity, classifier.Label(alarm))
		if err != nil {
			return err
		}
		return options.PrintResult(r)
	},
}

func init() {
	Cmd.Flags().StringVarP(&flags.model, "model", "m", "", "classifier model `file` (default: model.path from the configuration)")
	Cmd.Flags().Float64Var(&flags.temperature, "temp", 0, "temperature, in °C")
	Cmd.Flags().Float64Var(&flags.humidity, "hum", 0, "relative humidity, in %")
	Cmd.Flags().StringVar(&flags.alarmLabel, "alarm-label", "", "label that turns the buzzer on (default: actuation.alarm_label from the configuration)")
	Cmd.MarkFlagRequired("temp")
	Cmd.MarkFlagRequired("hum")
}

// Classify loads the model at path and runs one reading through it, the way the
// daemon would.
func Classify(path string, temperature, humidity float64, alarm classifier.Label) (Result, error) {
	m, err := classifier.Load(path)
	if err != nil {
		return Result{}, err
	}
	label := m.Classify(temperature, humidity)
	return Result{
		Model:       m.Name(),
		Temperature: temperature,
		Humidity:    humidity,
		Predicted:   label,
		Command:     pipeline.Actuation{AlarmLabel: alarm}.Command(label),
		Known:       m.Has(label),
	}, nil
}
