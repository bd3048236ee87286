package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lzetgo0/SIC7/hlog"
	"github.com/Lzetgo0/SIC7/internal/debug"
	"github.com/Lzetgo0/SIC7/internal/global"
	"github.com/Lzetgo0/SIC7/sic7/ctl/classify"
	"github.com/Lzetgo0/SIC7/sic7/ctl/options"
	"github.com/Lzetgo0/SIC7/sic7/ctl/send"
	"github.com/Lzetgo0/SIC7/sic7/daemon"
)

var Cmd = &cobra.Command{
	Use:   "sic7",
	Short: "Comfort classifier for MQTT temperature & humidity sensors",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		hlog.InitWithDebug(options.Flags.Verbose, options.Flags.Debug)
		log := hlog.Logger

		if debug.IsDebuggerAttached() {
			log.Info("Running under debugger (will wait forever)")
			options.Flags.CommandTimeout = 0
		}

		if err := options.ReadConfig(options.ViperConfig, options.Flags.ConfigFile); err != nil {
			log.Error(err, "Failed to read configuration")
			return err
		}

		ctx := options.CommandLineContext(cmd.Context(), log, options.Flags.CommandTimeout, getVersion())
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		global.Cancel(cmd.Context())()
		return nil
	},
}

func init() {
	f := Cmd.PersistentFlags()
	f.StringVarP(&options.Flags.ConfigFile, "config", "c", "", "configuration `file` (default: sic7.yaml in ., ~/.config/sic7 or /etc/sic7)")
	f.BoolVarP(&options.Flags.Verbose, "verbose", "v", false, "verbose output")
	f.BoolVarP(&options.Flags.Debug, "debug", "d", false, "debug output")
	f.BoolVarP(&options.Flags.Json, "json", "j", false, "print results as JSON instead of YAML")
	f.DurationVarP(&options.Flags.CommandTimeout, "timeout", "t", options.COMMAND_DEFAULT_TIMEOUT, "command timeout, 0 waits forever")
	f.StringP("mqtt-broker", "B", options.DEFAULT_MQTT_HOST, "MQTT broker host, or \"mdns\" to look it up on the local network")
	f.IntP("mqtt-port", "P", options.DEFAULT_MQTT_PORT, "MQTT broker port")

	for key, flag := range map[string]string{
		"mqtt.host": "mqtt-broker",
		"mqtt.port": "mqtt-port",
	} {
		if err := options.ViperConfig.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	Cmd.AddCommand(daemon.Cmd)
	Cmd.AddCommand(classify.Cmd)
	Cmd.AddCommand(send.Cmd)
}

func main() {
	cobra.EnableTraverseRunHooks = true
	err := Cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
