// cmd/company-assistant/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"company-assistant/internal/common/cache"
	"company-assistant/internal/common/config"
	"company-assistant/internal/common/logger"
	"company-assistant/internal/common/observability"
	"company-assistant/internal/common/userio"
	resolutionloop "company-assistant/internal/workers/resolution/resolution-loop"
)

func main() {
	os.Exit(run())
}

func run() int {
	debug := flag.Bool("debug", false, "log at debug level")
	noLinks := flag.Bool("no-links", false, "print source labels without terminal hyperlinks")
	flag.Parse()

	if !isInteractive(os.Stdin) {
		time.Sleep(time.Second)
		fmt.Print("\n >> Hey there! This program requires user input. You should run the container with `-it` flag.\n\n")
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	level := cfg.Logging.Level
	if *debug {
		level = "debug"
	}
	zapLog := logger.NewWithOutput(level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting company assistant...",
		zap.String("environment", cfg.App.Environment),
		zap.String("envFile", config.EnvFileUsed),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := connectCache(ctx, cfg, zapLog)
	defer closeStore()

	var ops *http.Server
	if cfg.Metrics.Enabled {
		ops = startOpsServer(cfg.Metrics.Address, store, zapLog)
	}

	ui := userio.NewTerminal(os.Stdin, os.Stdout, !*noLinks)
	loop, err := buildLoop(cfg, store, ui, obs, log)
	if err != nil {
		zapLog.Error("failed to wire resolution loop", zap.Error(err))
		return 1
	}

	printWelcome(os.Stdout)

	exitCode := 0
	err = loop.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		ui.Notify(resolutionloop.GoodbyeMessage)
	default:
		zapLog.Error("resolution loop stopped", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Sorry, something went wrong internally. Please try again.")
		exitCode = 1
	}

	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("ops server forced to shutdown", zap.Error(err))
		}
	}

	zapLog.Info("Company assistant stopped")
	return exitCode
}

func isInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// connectCache returns the Redis cache when it is enabled and reachable,
// otherwise a no-op cache.
func connectCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Cache, func()) {
	if !cfg.Cache.Enabled {
		return cache.Noop{}, func() {}
	}

	rc := cache.NewRedis(cfg.Cache.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.Warn("response cache unavailable, continuing without it",
			zap.String("address", cfg.Cache.Redis.Address),
			zap.Error(err),
		)
		_ = rc.Close()
		return cache.Noop{}, func() {}
	}

	log.Info("response cache connected", zap.String("address", cfg.Cache.Redis.Address))
	return rc, func() {
		if err := rc.Close(); err != nil {
			log.Warn("error closing response cache", zap.Error(err))
		}
	}
}

func printWelcome(w io.Writer) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, `
Welcome! I am an AI assistant that will help you with your company-related queries.
I can provide information about a company you want, including:
 • General information (e.g. location, history, products, investment portfolio)
 • Financial information (e.g. stocks, market performance)
 • Recent news and updates

After I answer your question, I will cite my sources as hyperlinks so that you can check for more details.
 • On Mac: Press %s on a link to open it in your browser.
 • On Windows (PowerShell, Windows Terminal): Press %s to access the source directly.
 • On Windows Command Prompt (cmd.exe): Hyperlinks are not supported, so please %s the link into your browser.

Start by asking me a question about a company, and I'll do my best to help you out!

`, bold("Command (⌘) + Click"), bold("Ctrl + Click"), bold("copy and paste"))
}
