package daemon

import (
	"context"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/kardianos/service"

	"github.com/Lzetgo0/SIC7/sic7/ctl/options"
)

const stopGrace = 5 * time.Second

type daemon struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logr.Logger
	cfg    options.Config
	done   chan struct{}
}

func NewDaemon(ctx context.Context, log logr.Logger, cfg options.Config) *daemon {
	ctx, cancel := context.WithCancel(ctx)
	return &daemon{
		ctx:    ctx,
		cancel: cancel,
		log:    log,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

func (d *daemon) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	go func() {
		defer close(d.done)
		if err := Run(d.ctx, d.log, d.cfg, options.ViperConfig); err != nil {
			d.log.Error(err, "Daemon failed")
			// let the service manager restart us
			os.Exit(1)
		}
	}()
	return nil
}

func (d *daemon) Stop(s service.Service) error {
	d.cancel()
	select {
	case <-d.done:
	case <-time.After(stopGrace):
		d.log.Info("Daemon did not stop in time", "grace", stopGrace)
	}
	return nil
}
