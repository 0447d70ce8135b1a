package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sysnotifd/internal/app"
	"sysnotifd/internal/config"
	logx "sysnotifd/pkg/logx"
)

func main() {
	var (
		cfgPath string
		check   bool
		history int
	)
	flag.StringVar(&cfgPath, "config", "", "path to config file (json, yaml or toml); default "+config.DefaultPath())
	flag.BoolVar(&check, "check", false, "validate the config and exit")
	flag.IntVar(&history, "history", 0, "print the last N notification history entries and exit")
	flag.Parse()

	cfg, _, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if check {
		if err := app.Validate(cfg); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		fmt.Println("config ok")
		return
	}
	if history > 0 {
		if err := printHistory(cfg, history); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	reason := app.StopStreamEnd
	select {
	case sig := <-sigCh:
		reason = app.StopSIGTERM
		if sig == os.Interrupt {
			reason = app.StopSIGINT
		}
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		os.Exit(1)
	}
}

func printHistory(cfg *config.Config, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, err := app.RecentHistory(ctx, cfg, n, logx.NewConsole(cfg.Logging.Level))
	if err != nil {
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-7s  #%-5d  %s", e.At.Local().Format(time.DateTime), e.Action, e.Handle, e.App)
		if e.Summary != "" {
			line += "  " + e.Summary
		}
		if e.Body != "" {
			line += ": " + e.Body
		}
		if e.Error != "" {
			line += "  (error: " + e.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}
