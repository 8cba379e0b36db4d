// Command relay-server exposes the relay as an OpenAI-compatible HTTP
// endpoint. Clients POST chat completion requests to
// /v1/chat/completions and receive the rewritten response as an SSE
// stream; /v1/models lists the configured models.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medicnex/ragflow-relay/relay"
)

func main() {
	godotenv.Load()

	var (
		addr       string
		configPath string
	)

	root := &cobra.Command{
		Use:          "relay-server",
		Short:        "Relay DeepSeek chat completions with reasoning spans rewritten as fenced blocks",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			valves := relay.ValvesFromEnv()
			if configPath != "" {
				valves, err = relay.LoadValves(configPath)
				if err != nil {
					return err
				}
			}

			pipe := relay.NewPipe(valves).
				WithLogger(logger).
				WithEmitter(relay.NewLogEmitter(logger))
			return serve(cmd.Context(), addr, pipe, logger)
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML valves file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, addr string, pipe *relay.Pipe, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"data":   pipe.Models(),
		})
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		handleChatCompletions(w, r, pipe, logger)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request, pipe *relay.Pipe, logger *zap.Logger) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for fragment := range pipe.Stream(r.Context(), body) {
		chunk := map[string]any{
			"object": "chat.completion.chunk",
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]string{"content": fragment}},
			},
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			logger.Error("failed to encode chunk", zap.Error(err))
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; the pipe notices via r.Context().
			return
		}
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
