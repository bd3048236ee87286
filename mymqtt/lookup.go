package mymqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/grandcat/zeroconf"
)

const ZEROCONF_SERVICE = "_mqtt._tcp"
const DEFAULT_MDNS_TIMEOUT = 5 * time.Second

// lookupBroker turns the configured host into a broker URL. An empty host or
// "mdns" browses the local network for an MQTT service.
func lookupBroker(ctx context.Context, log logr.Logger, cfg Config) (*url.URL, error) {
	if cfg.Host == "" || cfg.Host == "mdns" {
		return lookupBrokerViaZeroConf(ctx, log, cfg.MdnsTimeout)
	}
	return brokerUrl(cfg.Host, cfg.Port)
}

func brokerUrl(host string, port int) (*url.URL, error) {
	// host may carry its own port, e.g. "localhost:1884"
	if h, p, err := net.SplitHostPort(host); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid broker port %q: %w", p, err)
		}
		host, port = h, n
	}
	if port <= 0 {
		port = PRIVATE_PORT
	}
	if port > 65535 {
		return nil, fmt.Errorf("invalid broker port %d", port)
	}
	if strings.ContainsAny(host, "/ ") {
		return nil, fmt.Errorf("invalid broker host %q", host)
	}
	return &url.URL{
		Scheme: "tcp",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
	}, nil
}

func lookupBrokerViaZeroConf(ctx context.Context, log logr.Logger, timeout time.Duration) (*url.URL, error) {
	if timeout <= 0 {
		timeout = DEFAULT_MDNS_TIMEOUT
	}
	log.Info("Looking up MQTT broker via mDNS", "service", ZEROCONF_SERVICE, "timeout", timeout)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		log.Error(err, "Failed to initialize zeroconf resolver")
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var mu sync.Mutex
	brokers := make([]*url.URL, 0)

	go func() {
		for entry := range entries {
			// Filter-out spurious candidates
			if !strings.Contains(entry.Service, ZEROCONF_SERVICE) {
				continue
			}
			log.Info("Found MQTT broker", "instance", entry.Instance, "ipv4", entry.AddrIPv4, "port", entry.Port)
			mu.Lock()
			for _, ip := range entry.AddrIPv4 {
				brokers = append(brokers, &url.URL{
					Scheme: "tcp",
					Host:   net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)),
				})
			}
			mu.Unlock()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := resolver.Browse(ctx, ZEROCONF_SERVICE, "local.", entries); err != nil {
		log.Error(err, "Failed to browse")
		return nil, err
	}

	// wait for the lookup to complete
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no MQTT broker found for service %s", ZEROCONF_SERVICE)
	}
	log.Info("Using MQTT broker", "broker", brokers[0], "candidates", len(brokers))
	return brokers[0], nil
}
