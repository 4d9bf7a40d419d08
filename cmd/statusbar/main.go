package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statusbar/internal/app"
	logx "statusbar/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config (json or yaml)")
	flag.Parse()

	// Used until the configured log service exists, and after it is closed.
	boot := logx.NewConsole("INFO").Component("main")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		boot.Error("fatal", logx.String("config", cfgPath), logx.Err(err))
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		boot.Error("fatal start", logx.Err(err))
		os.Exit(1)
	}

	shellErr := make(chan error, 1)
	go func() { shellErr <- runShell(ctx, a.Status(), os.Stdin, os.Stdout) }()

	select {
	case <-ctx.Done():
	case <-a.Done():
	case err := <-shellErr:
		if err != nil {
			boot.Warn("shell stopped", logx.Err(err))
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		boot.Error("stop failed", logx.Err(err))
		os.Exit(1)
	}
}
