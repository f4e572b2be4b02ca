package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/skp2xml/internal/logger"
	"github.com/Faultbox/skp2xml/internal/watcher"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <source>",
		Short: "Convert a source and convert it again whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runWatch,
	}
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src := args[0]

	w, err := watcher.New(a.cfg.Watch.Debounce, logger.Log)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch([]string{src}, func(string) {
		logger.Log.Info("source changed, converting", zap.String("src", src))
		a.convert(ctx, src)
	}); err != nil {
		return err
	}

	a.convert(ctx, src)
	logger.Log.Info("watching for changes", zap.String("src", src), zap.Duration("debounce", a.cfg.Watch.Debounce))
	return w.Run(ctx)
}
