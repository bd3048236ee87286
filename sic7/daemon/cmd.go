package daemon

import (
	"github.com/spf13/cobra"

	"github.com/Lzetgo0/SIC7/hlog"
	"github.com/Lzetgo0/SIC7/sic7/ctl/options"
)

var Cmd = &cobra.Command{
	Use:   "daemon",
	Short: "SIC7 Daemon",
	Long:  "SIC7 Daemon: classifies MQTT sensor readings and drives the buzzer",
	Args:  cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		hlog.InitForDaemon(options.Flags.Verbose, options.Flags.Debug)
	},
}
