package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lzetgo0/SIC7/hlog"
	"github.com/Lzetgo0/SIC7/internal/classifier"
	"github.com/Lzetgo0/SIC7/internal/global"
	"github.com/Lzetgo0/SIC7/internal/observation"
	"github.com/Lzetgo0/SIC7/internal/pipeline"
	"github.com/Lzetgo0/SIC7/mymqtt"
	"github.com/Lzetgo0/SIC7/sic7/ctl/options"
	sic7http "github.com/Lzetgo0/SIC7/sic7/http"
	"github.com/Lzetgo0/SIC7/sic7/metrics"
	mqttserver "github.com/Lzetgo0/SIC7/sic7/mqtt"
)

func init() {
	Cmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("model", options.DEFAULT_MODEL_PATH, "classifier model `file` (.yaml or .json)")
	f.Bool("embedded-broker", false, "start an embedded MQTT broker and connect to it")
	f.Int("http-port", options.DEFAULT_HTTP_PORT, "query API port, 0 to disable")
	f.Int("log-capacity", 0, "keep only the last N observations, 0 to keep all")

	for key, flag := range map[string]string{
		"model.path":    "model",
		"mqtt.embedded": "embedded-broker",
		"http.port":     "http-port",
		"log.capacity":  "log-capacity",
	} {
		if err := options.ViperConfig.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon, in the foreground or under the service manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := hlog.Logger
		cfg, err := options.Load(options.ViperConfig)
		if err != nil {
			return err
		}

		// the daemon outlives --timeout, only a signal stops it
		ctx := global.ProcessContext(cmd.Context())

		if service.Interactive() {
			return Run(ctx, log, cfg, options.ViperConfig)
		}

		s, _, err := load(ctx, log, cfg)
		if err != nil {
			return err
		}
		return s.Run()
	},
}

// Run wires the daemon and blocks until ctx is done. It returns an error when
// start-up fails or when the MQTT link is declared lost.
func Run(ctx context.Context, log logr.Logger, cfg options.Config, v *viper.Viper) error {
	log.Info("Starting SIC7 daemon", "version", global.Version(ctx))

	model, err := classifier.Load(cfg.Model.Path)
	if err != nil {
		log.Error(err, "Failed to load classifier model", "path", cfg.Model.Path)
		return err
	}
	log.Info("Loaded classifier model", "name", model.Name(), "kind", model.Kind(), "labels", model.Labels())
	if !model.Has(classifier.Label(cfg.Actuation.AlarmLabel)) {
		log.Info("Alarm label is not produced by the model, the buzzer will never turn on", "alarm_label", cfg.Actuation.AlarmLabel)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	host := cfg.Mqtt.Host
	if cfg.Mqtt.Embedded {
		bc := mqttserver.BrokerConfig{
			Address:           fmt.Sprintf("0.0.0.0:%d", cfg.Mqtt.Port),
			ClientLogInterval: cfg.Mqtt.ClientLogInterval,
		}
		if cfg.Mqtt.MdnsPublish {
			bc.MdnsInstance = "sic7"
			bc.MdnsInfo = []string{
				fmt.Sprintf("version=%s", global.Version(ctx)),
				fmt.Sprintf("sensor_topic=%s", cfg.Topics.Sensor),
				fmt.Sprintf("actuator_topic=%s", cfg.Topics.Actuator),
			}
		}
		_, err := mqttserver.Broker(ctx, log, bc, v)
		if err != nil {
			log.Error(err, "Failed to start embedded MQTT broker")
			return err
		}
		if err := mqttserver.WaitForBrokerReady(ctx, log, fmt.Sprintf("localhost:%d", cfg.Mqtt.Port), 5*time.Second); err != nil {
			log.Error(err, "MQTT broker failed to become ready")
			return err
		}
		host = "localhost"
	} else {
		log.Info("Embedded MQTT broker disabled")
	}

	mc, err := mymqtt.NewClientE(ctx, log, mymqtt.Config{
		Host:           host,
		Port:           cfg.Mqtt.Port,
		KeepAlive:      cfg.Mqtt.KeepAlive,
		ClientId:       cfg.Mqtt.ClientId,
		ConnectTimeout: cfg.Mqtt.Timeout,
		PublishTimeout: cfg.Mqtt.Timeout,
		MdnsTimeout:    cfg.Mqtt.MdnsTimeout,
	})
	if err != nil {
		log.Error(err, "Failed to initialize MQTT client")
		return err
	}
	defer mc.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewPipeline(registry)
	observations := observation.New(cfg.Log.Capacity)

	msgs, err := mc.Subscribe(ctx, cfg.Topics.Sensor, cfg.Pipeline.QueueLength)
	if err != nil {
		log.Error(err, "Failed to subscribe to sensor topic", "topic", cfg.Topics.Sensor)
		return err
	}

	p := pipeline.New(log, pipeline.Config{
		ActuatorTopic:  cfg.Topics.Actuator,
		AlarmLabel:     classifier.Label(cfg.Actuation.AlarmLabel),
		PublishTimeout: cfg.Pipeline.PublishTimeout,
	}, model, mc, observations, m)

	if cfg.Http.Port > 0 {
		router := sic7http.NewRouter(log.WithName("http"), observations, mc, registry)
		if err := sic7http.Start(ctx, log.WithName("http"), fmt.Sprintf(":%d", cfg.Http.Port), router); err != nil {
			log.Error(err, "Failed to start query API")
			return err
		}
	} else {
		log.Info("Query API disabled")
	}

	if cfg.Watchdog.Interval > 0 {
		w := NewMqttWatchdog(mc, log, cfg.Watchdog.Interval, cfg.Watchdog.MaxFailures)
		go func() {
			if err := w.Start(ctx); err != nil {
				cancel(err)
			}
		}()
	} else {
		log.Info("MQTT watchdog disabled")
	}

	log.Info("Running", "sensor_topic", cfg.Topics.Sensor, "actuator_topic", cfg.Topics.Actuator)
	err = p.Run(ctx, msgs)

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		log.Error(cause, "Shutting down")
		return cause
	}
	if err != nil && !hlog.IsContextCancellation(err) {
		log.Error(err, "Pipeline stopped")
		return err
	}
	log.Info("Shutting down", "observations", observations.Len(), "total", observations.Total())
	return nil
}
