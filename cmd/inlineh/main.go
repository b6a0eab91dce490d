// Package main is the entry point for the inlineh site generator.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/CageChen/inlineh/internal/config"
	mfs "github.com/CageChen/inlineh/internal/fs"
	"github.com/CageChen/inlineh/internal/handler"
	"github.com/CageChen/inlineh/internal/site"
	"github.com/CageChen/inlineh/internal/watcher"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%s failed: %v", cfg.Command, err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	switch cfg.Command {
	case config.CommandInit:
		if err := cfg.Save(); err != nil {
			return err
		}
		log.Printf("Wrote %s", cfg.GetConfigFilePath())
		return nil
	case config.CommandServe:
		return serve(ctx, cfg)
	default:
		_, err := build(ctx, cfg, site.Options{})
		return err
	}
}

// sourceFS returns the filesystem the site is read from.
func sourceFS(cfg *config.Config) (mfs.FileSystem, error) {
	if cfg.GitRef != "" {
		return mfs.NewGitFS(cfg.Source, cfg.GitRef)
	}
	return mfs.NewLocalFS(cfg.Source), nil
}

func build(ctx context.Context, cfg *config.Config, opts site.Options) (*site.Builder, error) {
	log.Printf("inlineh - static site generator")
	log.Printf("Config file: %s", cfg.GetConfigFilePath())
	if cfg.GitRef != "" {
		log.Printf("Source: %s (git ref: %s)", cfg.Source, cfg.GitRef)
	} else {
		log.Printf("Source: %s", cfg.Source)
	}
	log.Printf("Destination: %s", cfg.Destination)

	fsys, err := sourceFS(cfg)
	if err != nil {
		return nil, err
	}
	b, err := site.New(cfg, fsys, opts)
	if err != nil {
		return nil, err
	}

	res, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("Built %d page(s) and copied %d file(s) in %s", res.Pages, res.Files, res.Duration.Round(time.Millisecond))
	return b, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	b, err := build(ctx, cfg, site.Options{LiveReload: cfg.Watch})
	if err != nil {
		return err
	}

	wsHandler := handler.NewWSHandler()

	// Setup file watcher if enabled (git refs do not change under us)
	if cfg.Watch && cfg.GitRef == "" {
		w, err := watcher.New(cfg)
		if err != nil {
			log.Printf("Warning: failed to create file watcher: %v", err)
		} else {
			w.OnChange(func(events []watcher.Event) {
				res, err := b.Build(ctx)
				if err != nil {
					log.Printf("Rebuild failed: %v", err)
				} else {
					log.Printf("Rebuilt %d page(s) after %d change(s)", res.Pages, len(events))
				}
				wsHandler.OnRebuild(events, res, err)
			})
			if err := w.Start(); err != nil {
				log.Printf("Warning: failed to start file watcher: %v", err)
			}
			defer func() { _ = w.Stop() }()
			log.Printf("File watcher enabled")
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.NewRouter(handler.NewPageHandler(b), wsHandler, cfg.Destination),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Open browser if requested
	if cfg.Open {
		go openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting at: http://localhost:%d", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, etc.
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
