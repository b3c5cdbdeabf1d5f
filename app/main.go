package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rec-comb/app/api"
	"github.com/lysyi3m/rec-comb/app/cfg"
	"github.com/lysyi3m/rec-comb/app/feed"
	"github.com/lysyi3m/rec-comb/app/filter"
	"github.com/lysyi3m/rec-comb/app/indicator"
	"github.com/lysyi3m/rec-comb/app/page"
	"github.com/lysyi3m/rec-comb/app/panel"
	"github.com/lysyi3m/rec-comb/app/rules"
	"github.com/lysyi3m/rec-comb/app/store"
	"github.com/lysyi3m/rec-comb/app/tasks"
)

const blankPage = `<html><head><title>Rec Comb</title></head><body></body></html>`

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Rec Comb", "version", appCfg.Version)

	db, err := store.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open settings database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to settings database", "path", appCfg.DBPath)

	settings := store.NewSQLiteStore(db)

	selectors := filter.DefaultSelectors()
	if appCfg.RulesFile != "" {
		file, err := rules.LoadFile(appCfg.RulesFile)
		if err != nil {
			slog.Warn("Failed to read rules file, using built-in selectors", "path", appCfg.RulesFile, "error", err)
		} else {
			selectors = selectors.Override(file.Selectors)
		}
	}

	doc, err := page.ParseString("about:blank", blankPage)
	if err != nil {
		slog.Error("Failed to create document", "error", err)
		os.Exit(1)
	}

	ind := indicator.New(appCfg.Dwell, appCfg.Fade, displays(appCfg.Indicators, doc)...)

	engine, err := filter.NewEngine(doc, settings, ind, filter.Options{
		Selectors:    selectors,
		Debounce:     appCfg.Debounce,
		InitDelay:    appCfg.InitDelay,
		PollInterval: appCfg.PollInterval,
		SettleDelay:  appCfg.SettleDelay,
	})
	if err != nil {
		slog.Error("Failed to create filter engine", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	defer engine.Stop()

	httpClient := &http.Client{Timeout: appCfg.FetchTimeout}
	newFetchTask := func(url string) tasks.TaskInterface {
		return tasks.NewFetchPageTask(url, httpClient, doc, appCfg.UserAgent, appCfg.FetchTimeout)
	}

	var startup []tasks.TaskInterface
	if appCfg.RulesFile != "" {
		startup = append(startup, tasks.NewImportRulesTask(appCfg.RulesFile, settings))
	}
	if appCfg.StartURL != "" {
		startup = append(startup, newFetchTask(appCfg.StartURL))
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(appCfg.WorkerCount)
	scheduler.Start(startup...)
	defer scheduler.Stop()

	if appCfg.RulesFile != "" {
		watcher, err := rules.NewWatcher(appCfg.RulesFile, appCfg.Debounce, func(path string) {
			if err := scheduler.EnqueueTask(tasks.NewImportRulesTask(path, settings)); err != nil {
				slog.Warn("Failed to enqueue rules import", "path", path, "error", err)
			}
		})
		if err != nil {
			slog.Warn("Rules file changes will not be picked up", "path", appCfg.RulesFile, "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	previewer := feed.NewPreviewer(httpClient, feed.NewParser(), feed.NewFilterer(), engine,
		appCfg.UserAgent, appCfg.FetchTimeout)

	handler := api.NewHandler(engine, doc, panel.New(settings, engine), ind, previewer, scheduler, newFetchTask)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	cancel()
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func displays(names []string, doc *page.Document) []indicator.Display {
	var out []indicator.Display
	for _, name := range names {
		switch name {
		case "overlay":
			out = append(out, indicator.NewOverlayDisplay(doc))
		case "log":
			out = append(out, indicator.LogDisplay{})
		case "terminal":
			out = append(out, indicator.NewTerminalDisplay(os.Stdout))
		}
	}
	return out
}
