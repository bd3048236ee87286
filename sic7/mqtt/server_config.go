package mqtt

import (
	"github.com/go-logr/logr"
	mochimqtt "github.com/mochi-mqtt/server/v2"
	"github.com/spf13/viper"
)

// loadBrokerConfig loads the broker options from the mqtt.broker section, if any.
func loadBrokerConfig(log logr.Logger, v *viper.Viper) *mochimqtt.Options {
	config := &mochimqtt.Options{
		Capabilities: mochimqtt.NewDefaultServerCapabilities(),
	}

	if v != nil && v.IsSet("mqtt.broker") {
		if err := v.UnmarshalKey("mqtt.broker", config); err != nil {
			log.Error(err, "Failed to unmarshal MQTT broker config, using defaults")
			return &mochimqtt.Options{
				Capabilities: mochimqtt.NewDefaultServerCapabilities(),
			}
		}
		if config.Capabilities == nil {
			config.Capabilities = mochimqtt.NewDefaultServerCapabilities()
		}
		log.Info("MQTT broker configuration loaded from config file")
	}

	log.V(1).Info("MQTT broker options",
		"maximum_message_expiry_interval", config.Capabilities.MaximumMessageExpiryInterval,
		"client_net_write_buffer_size", config.ClientNetWriteBufferSize,
		"client_net_read_buffer_size", config.ClientNetReadBufferSize,
		"sys_topic_resend_interval", config.SysTopicResendInterval)

	return config
}
