package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trade_go/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	metricsAddr := flag.String("metrics", "localhost:9102", "prometheus metrics listen address")
	flag.Parse()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		slog.Info("metrics server started", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	bootstrap.Queue.Start(ctx)
	if bootstrap.Stream != nil {
		bootstrap.Stream.Connect(ctx)
		defer bootstrap.Stream.Disconnect()
	}

	slog.Info("ready, type help for commands")

	go readCommands(ctx, bootstrap)

	<-ctx.Done()
	slog.Info("shutting down, stopping programs")
	stopped := bootstrap.Tasks.StopAll()
	slog.Info("shutdown complete", "stopped", stopped)
}

// readCommands is the operator REPL on stdin. Every line dispatches on
// its own goroutine so a long program does not block the prompt.
func readCommands(ctx context.Context, bootstrap *app.Bootstrap) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		go func(line string) {
			out, err := bootstrap.Dispatcher.Handle(ctx, line)
			if err != nil {
				fmt.Println("error:", err)
				return
			}
			if out != "" {
				fmt.Println(out)
			}
		}(line)
	}
}
