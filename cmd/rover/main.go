// Package main runs the rover: stereo capture, perception, autonomous navigation and the viewer.
package main

import (
	"context"

	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/rover"
)

var logger = logging.NewLogger("rover")

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"0,required,usage=rover config file"`
	Debug      bool   `flag:"debug"`
	Watch      bool   `flag:"watch,usage=reload the log settings when the config file changes"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg, err := config.Read(argsParsed.ConfigFile)
	if err != nil {
		return err
	}
	if argsParsed.Debug {
		cfg.Log.Level = "debug"
	}
	logCloser, err := cfg.Log.Apply(logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, logCloser.Close())
	}()

	r, err := rover.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		// ctx is already cancelled here and the final stop command must still go out.
		err = multierr.Combine(err, r.Close(context.Background()))
	}()
	if err := r.Start(ctx); err != nil {
		return err
	}

	if !argsParsed.Watch {
		<-ctx.Done()
		return nil
	}
	watcher, err := config.NewWatcher(ctx, argsParsed.ConfigFile, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, watcher.Close())
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case newCfg := <-watcher.Config():
			logConf := newCfg.Log
			if argsParsed.Debug {
				logConf.Level = "debug"
			}
			if err := r.ApplyLogConfig(logConf); err != nil {
				logger.Warnw("failed to apply log config", "error", err)
			}
		}
	}
}
