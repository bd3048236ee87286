package send

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lzetgo0/SIC7/hlog"
	"github.com/Lzetgo0/SIC7/internal/pipeline"
	"github.com/Lzetgo0/SIC7/mymqtt"
	"github.com/Lzetgo0/SIC7/sic7/ctl/options"
)

var flags struct {
	temperature float64
	humidity    float64
	wait        time.Duration
}

type Sent struct {
	Topic   string `json:"topic" yaml:"topic"`
	Payload string `json:"payload" yaml:"payload"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

var Cmd = &cobra.Command{
	Use:   "send",
	Short: "Publish one reading on the sensor topic, as the sensor board would",
	Example: `  sic7 send --temp 35 --hum 50 --wait 5s
  sic7 send -B localhost --temp 18 --hum 40`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := hlog.GetLogger("send")

		cfg, err := options.Load(options.ViperConfig)
		if err != nil {
			return err
		}

		mc, err := mymqtt.NewClientE(ctx, log, mymqtt.Config{
			Host:           cfg.Mqtt.Host,
			Port:           cfg.Mqtt.Port,
			KeepAlive:      cfg.Mqtt.KeepAlive,
			ConnectTimeout: cfg.Mqtt.Timeout,
			PublishTimeout: cfg.Mqtt.Timeout,
			MdnsTimeout:    cfg.Mqtt.MdnsTimeout,
		})
		if err != nil {
			return err
		}
		defer mc.Close()

		var commands <-chan mymqtt.Message
		if flags.wait > 0 {
			waitCtx, cancel := context.WithTimeout(ctx, flags.wait)
			defer cancel()
			// subscribe first so that a fast answer is not missed
			commands, err = mc.Subscribe(waitCtx, cfg.Topics.Actuator, 1)
			if err != nil {
				return err
			}
		}

		payload, err := Payload(flags.temperature, flags.humidity)
		if err != nil {
			return err
		}
		log.Info("Publishing reading", "broker", mc.BrokerUrl().String(), "topic", cfg.Topics.Sensor)
		if err := mc.Publish(ctx, cfg.Topics.Sensor, payload); err != nil {
			hlog.ErrorIfNotCanceled(log, err, "Failed to publish reading", "topic", cfg.Topics.Sensor)
			return err
		}

		out := Sent{Topic: cfg.Topics.Sensor, Payload: string(payload)}
		if commands != nil {
			m, ok := <-commands
			if !ok {
				return fmt.Errorf("no command received on %s within %v", cfg.Topics.Actuator, flags.wait)
			}
			out.Command = string(m.Payload)
		}
		return options.PrintResult(out)
	},
}

func init() {
	Cmd.Flags().Float64Var(&flags.temperature, "temp", 0, "temperature, in °C")
	Cmd.Flags().Float64Var(&flags.humidity, "hum", 0, "relative humidity, in %")
	Cmd.Flags().DurationVarP(&flags.wait, "wait", "w", 0, "wait that long for the buzzer command, 0 to not wait")
	Cmd.MarkFlagRequired("temp")
	Cmd.MarkFlagRequired("hum")
}

// Payload encodes a reading the way the sensor board does.
func Payload(temperature, humidity float64) ([]byte, error) {
	return json.Marshal(map[string]float64{
		pipeline.FieldTemperature: temperature,
		pipeline.FieldHumidity:    humidity,
	})
}
