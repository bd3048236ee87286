package daemon

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/Lzetgo0/SIC7/hlog"
	"github.com/Lzetgo0/SIC7/sic7/ctl/options"
)

func init() {
	Cmd.AddCommand(installCmd)
	Cmd.AddCommand(uninstallCmd)
}

func serviceConfig() *service.Config {
	args := []string{"daemon", "run"}
	if options.Flags.ConfigFile != "" {
		args = append(args, "--config", options.Flags.ConfigFile)
	}
	return &service.Config{
		Name:        "sic7",
		DisplayName: "SIC7",
		Description: "SIC7 Daemon: classifies MQTT sensor readings and drives the buzzer",
		Arguments:   args,
	}
}

func load(ctx context.Context, log logr.Logger, cfg options.Config) (service.Service, service.Logger, error) {
	s, err := service.New(NewDaemon(ctx, log, cfg), serviceConfig())
	if err != nil {
		log.Error(err, "Failed to create (background) service")
		return nil, nil, err
	}
	logger, err := s.Logger(nil)
	if err != nil {
		log.Error(err, "Failed to create (background) service logger")
		return nil, nil, err
	}
	return s, logger, nil
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install SIC7 as a " + service.Platform() + " service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, l, err := load(cmd.Context(), hlog.Logger, options.Config{})
		if err != nil {
			return err
		}
		l.Info("Installing service")
		return s.Install()
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall SIC7 as a " + service.Platform() + " service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, l, err := load(cmd.Context(), hlog.Logger, options.Config{})
		if err != nil {
			return err
		}
		l.Info("Uninstalling service")
		return s.Uninstall()
	},
}
