package options

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lzetgo0/SIC7/internal/global"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v2"
)

const MDNS_LOOKUP_DEFAULT_TIMEOUT time.Duration = 7 * time.Second

const MQTT_DEFAULT_TIMEOUT time.Duration = 14 * time.Second

const COMMAND_DEFAULT_TIMEOUT time.Duration = 0 // No timeout by default (wait indefinitely)

const MQTT_WATCHDOG_CHECK_INTERVAL time.Duration = 30 * time.Second

const MQTT_WATCHDOG_MAX_FAILURES int = 3

const MQTT_BROKER_CLIENT_LOG_INTERVAL time.Duration = 2 * time.Minute

var Flags struct {
	ConfigFile     string // the value taken by --config / -c
	Verbose        bool
	Debug          bool
	Json           bool
	CommandTimeout time.Duration // the value taken by --timeout / -t
}

func CommandLineContext(ctx context.Context, log logr.Logger, timeout time.Duration, version string) context.Context {
	var cancel context.CancelFunc

	// Process-wide context, outlives the per-command timeout
	processCtx, processCancel := context.WithCancel(logr.NewContext(ctx, log))

	if timeout > 0 {
		ctx, cancel = context.WithTimeout(processCtx, timeout)
	} else {
		ctx, cancel = context.WithCancel(processCtx)
	}
	ctx = context.WithValue(ctx, global.CancelKey, cancel)
	ctx = context.WithValue(ctx, global.ProcessContextKey, processCtx)
	ctx = context.WithValue(ctx, global.VersionKey, version)

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			log.Info("Received signal", "signal", sig.String())
		case <-processCtx.Done():
		}
		cancel()
		processCancel()
	}()
	return ctx
}

func PrintResult(out any) error {
	if Flags.Json {
		s, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Println(string(s))
	} else {
		s, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Print(string(s))
	}
	return nil
}
