package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/grandcat/zeroconf"
	"github.com/spf13/viper"

	mochiServer "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/hooks/debug"
	"github.com/mochi-mqtt/server/v2/listeners"
)

const PRIVATE_PORT = 1883
const ZEROCONF_SERVICE = "_mqtt._tcp"

type BrokerConfig struct {
	Address           string        // listen address, defaults to 0.0.0.0:1883
	ClientLogInterval time.Duration // 0 disables the connected clients log
	MdnsInstance      string        // "" disables the mDNS publication
	MdnsInfo          []string      // TXT records
}

// Broker starts an embedded MQTT broker that accepts every client. It is shut
// down when ctx is done.
func Broker(ctx context.Context, log logr.Logger, cfg BrokerConfig, v *viper.Viper) (*mochiServer.Server, error) {
	log = log.WithName("MqttBroker")
	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf("0.0.0.0:%d", PRIVATE_PORT)
	}
	log.Info("Starting embedded MQTT broker", "address", cfg.Address, "client_log_interval", cfg.ClientLogInterval)

	opts := loadBrokerConfig(log, v)
	opts.Logger = slog.New(logr.ToSlogHandler(log))

	mqttServer := mochiServer.New(opts)

	if log.V(2).Enabled() {
		err := mqttServer.AddHook(&debug.Hook{
			Log: slog.New(logr.ToSlogHandler(log.WithName("debug"))),
		}, &debug.Options{
			ShowPacketData: true,
		})
		if err != nil {
			log.Error(err, "error adding MQTT debug hook")
			return nil, err
		}
	}

	// No authentication on the sensor network
	if err := mqttServer.AddHook(new(auth.AllowHook), nil); err != nil {
		log.Error(err, "error adding MQTT auth hook")
		return nil, err
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "tcp",
		Address: cfg.Address,
	})
	if err := mqttServer.AddListener(tcp); err != nil {
		log.Error(err, "error adding TCP listener")
		return nil, err
	}
	if err := mqttServer.Serve(); err != nil {
		log.Error(err, "error starting MQTT server")
		return nil, err
	}
	log.Info("Now listening for MQTT connections", "address", tcp.Address())

	var mdnsServer *zeroconf.Server
	if cfg.MdnsInstance != "" {
		mdnsServer = publish(log, cfg)
	} else {
		log.Info("MQTT broker has mDNS disabled")
	}

	if cfg.ClientLogInterval > 0 {
		go func(log logr.Logger) {
			ticker := time.NewTicker(cfg.ClientLogInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					clients := mqttServer.Clients.GetAll()
					clientIds := make([]string, 0, len(clients))
					for id := range clients {
						clientIds = append(clientIds, id)
					}
					log.Info("MQTT broker connected clients", "count", len(clients), "client_ids", clientIds)
				}
			}
		}(log.WithName("monitor"))
	}

	go func(log logr.Logger) {
		<-ctx.Done()
		log.Info("Shutting down MQTT broker")
		if mdnsServer != nil {
			mdnsServer.Shutdown()
		}
		mqttServer.Close()
	}(log.WithName("cleanup"))

	return mqttServer, nil
}

// publish registers the broker with mDNS so that clients configured with host
// "mdns" find it. Failing to do so is not fatal.
func publish(log logr.Logger, cfg BrokerConfig) *zeroconf.Server {
	_, p, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		log.Error(err, "Unable to publish MQTT broker over mDNS", "address", cfg.Address)
		return nil
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		log.Error(err, "Unable to publish MQTT broker over mDNS", "address", cfg.Address)
		return nil
	}

	srv, err := zeroconf.Register(cfg.MdnsInstance, ZEROCONF_SERVICE, "local.", port, cfg.MdnsInfo, nil)
	if err != nil {
		log.Error(err, "Unable to register new ZeroConf service")
		return nil
	}
	log.Info("Published MQTT broker over mDNS", "instance", cfg.MdnsInstance, "mdns_service", ZEROCONF_SERVICE, "port", port)
	return srv
}

// WaitForBrokerReady polls addr until it accepts TCP connections.
func WaitForBrokerReady(ctx context.Context, log logr.Logger, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			log.V(1).Info("MQTT broker is ready", "address", addr)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("MQTT broker at %s not ready after %v: %w", addr, timeout, err)
		case <-time.After(50 * time.Millisecond):
		}
	}
}
