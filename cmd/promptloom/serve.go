package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/promptloom/promptloom/internal/cli"
	httpAdapter "github.com/promptloom/promptloom/pkg/adapters/http"
	"github.com/promptloom/promptloom/pkg/chain"
	"github.com/promptloom/promptloom/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the chain engine in server mode, exposing session creation, stepping and full runs over a JSON API, plus Prometheus metrics on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		debug, _ := cmd.Flags().GetBool("debug")

		logger := cli.CreateLogger(debug)

		eng, err := cli.NewEngine(cli.RunOptions{FilePath: file, RedisAddr: redisAddr, Debug: debug}, logger)
		if err != nil {
			fmt.Printf("Error initializing promptloom: %v\n", err)
			os.Exit(1)
		}
		definition := eng.Definition()

		registry := prometheus.NewRegistry()
		tracer := observability.NewMetricsTracer(registry)

		server := httpAdapter.NewServer(definition, eng.Sessions(),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithChainOptions(append(eng.ChainOptions(), chain.WithTracer(tracer))...),
		)

		mux := chi.NewRouter()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.Mount("/", httpAdapter.Handler(server))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Promptloom Server on %s\n", srv.Addr)
			fmt.Printf("Serving chain: %s\n", definition.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Promptloom Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for session persistence (e.g. localhost:6379)")
}
