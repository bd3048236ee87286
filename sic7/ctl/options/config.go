package options

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DEFAULT_MQTT_HOST       = "broker.hivemq.com"
	DEFAULT_MQTT_PORT       = 1883
	DEFAULT_MQTT_KEEPALIVE  = 60 * time.Second
	DEFAULT_SENSOR_TOPIC    = "iot/sensor/data"
	DEFAULT_ACTUATOR_TOPIC  = "iot/output"
	DEFAULT_MODEL_PATH      = "iot_temp_model.yaml"
	DEFAULT_ALARM_LABEL     = "Hot"
	DEFAULT_HTTP_PORT       = 8080
	DEFAULT_SUBSCRIBE_QUEUE = 64
)

// ENV_PREFIX prefixes every environment override, e.g. SIC7_MQTT_HOST.
const ENV_PREFIX = "SIC7"

var ViperConfig = NewViper()

type MqttConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	KeepAlive         time.Duration `mapstructure:"keepalive"`
	ClientId          string        `mapstructure:"client_id"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MdnsTimeout       time.Duration `mapstructure:"mdns_timeout"`
	Embedded          bool          `mapstructure:"embedded"`
	MdnsPublish       bool          `mapstructure:"mdns_publish"` // advertise the embedded broker
	ClientLogInterval time.Duration `mapstructure:"client_log_interval"`
}

type TopicsConfig struct {
	Sensor   string `mapstructure:"sensor"`
	Actuator string `mapstructure:"actuator"`
}

type ModelConfig struct {
	Path string `mapstructure:"path"`
}

type ActuationConfig struct {
	AlarmLabel string `mapstructure:"alarm_label"`
}

type LogConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type PipelineConfig struct {
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	QueueLength    uint          `mapstructure:"queue_length"`
}

type HttpConfig struct {
	Port int `mapstructure:"port"` // 0 disables the query API
}

type WatchdogConfig struct {
	Interval    time.Duration `mapstructure:"interval"` // 0 disables the watchdog
	MaxFailures int           `mapstructure:"max_failures"`
}

// Config is the whole runtime configuration of sic7.
type Config struct {
	Mqtt      MqttConfig      `mapstructure:"mqtt"`
	Topics    TopicsConfig    `mapstructure:"topics"`
	Model     ModelConfig     `mapstructure:"model"`
	Actuation ActuationConfig `mapstructure:"actuation"`
	Log       LogConfig       `mapstructure:"log"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Http      HttpConfig      `mapstructure:"http"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
}

// NewViper returns a viper instance holding every default, overridable from
// SIC7_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("mqtt.host", DEFAULT_MQTT_HOST)
	v.SetDefault("mqtt.port", DEFAULT_MQTT_PORT)
	v.SetDefault("mqtt.keepalive", DEFAULT_MQTT_KEEPALIVE)
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.timeout", MQTT_DEFAULT_TIMEOUT)
	v.SetDefault("mqtt.mdns_timeout", MDNS_LOOKUP_DEFAULT_TIMEOUT)
	v.SetDefault("mqtt.embedded", false)
	v.SetDefault("mqtt.mdns_publish", true)
	v.SetDefault("mqtt.client_log_interval", MQTT_BROKER_CLIENT_LOG_INTERVAL)
	v.SetDefault("topics.sensor", DEFAULT_SENSOR_TOPIC)
	v.SetDefault("topics.actuator", DEFAULT_ACTUATOR_TOPIC)
	v.SetDefault("model.path", DEFAULT_MODEL_PATH)
	v.SetDefault("actuation.alarm_label", DEFAULT_ALARM_LABEL)
	v.SetDefault("log.capacity", 0)
	v.SetDefault("pipeline.publish_timeout", time.Duration(0))
	v.SetDefault("pipeline.queue_length", DEFAULT_SUBSCRIBE_QUEUE)
	v.SetDefault("http.port", DEFAULT_HTTP_PORT)
	v.SetDefault("watchdog.interval", MQTT_WATCHDOG_CHECK_INTERVAL)
	v.SetDefault("watchdog.max_failures", MQTT_WATCHDOG_MAX_FAILURES)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfig reads file, or sic7.yaml from the usual places when file is empty.
// A missing default config file is not an error.
func ReadConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("sic7")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sic7")
		v.AddConfigPath("/etc/sic7")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes and checks the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Mqtt.Port <= 0 || cfg.Mqtt.Port > 65535 {
		return fmt.Errorf("invalid mqtt.port %d", cfg.Mqtt.Port)
	}
	if cfg.Http.Port < 0 || cfg.Http.Port > 65535 {
		return fmt.Errorf("invalid http.port %d", cfg.Http.Port)
	}
	if cfg.Topics.Sensor == "" || cfg.Topics.Actuator == "" {
		return errors.New("topics.sensor and topics.actuator must be set")
	}
	if strings.ContainsAny(cfg.Topics.Actuator, "+#") {
		return fmt.Errorf("topics.actuator %q must not contain wildcards", cfg.Topics.Actuator)
	}
	if cfg.Model.Path == "" {
		return errors.New("model.path must be set")
	}
	if cfg.Actuation.AlarmLabel == "" {
		return errors.New("actuation.alarm_label must be set")
	}
	if cfg.Watchdog.Interval > 0 && cfg.Watchdog.MaxFailures <= 0 {
		return fmt.Errorf("invalid watchdog.max_failures %d", cfg.Watchdog.MaxFailures)
	}
	return nil
}
