package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/cache"
	"github.com/Sternrassler/pokeapi-client/pkg/client"
	"github.com/Sternrassler/pokeapi-client/pkg/metrics"
	"github.com/Sternrassler/pokeapi-client/pkg/resource"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a caching PokeAPI proxy with /health and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			ctx := cmd.Context()

			c, err := a.newClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           newProxy(c, a.logger).routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().
					Str("addr", addr).
					Str("base_url", c.Config().BaseURL).
					Msg("Starting PokeAPI proxy server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}

// proxy serves API paths from the client's cache.
type proxy struct {
	client *client.Client
	logger zerolog.Logger
}

func newProxy(c *client.Client, logger zerolog.Logger) *proxy {
	return &proxy{client: c, logger: logger}
}

func (p *proxy) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", p.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v2/{kind}/{$}", p.handleList)
	mux.HandleFunc("GET /api/v2/{kind}/{ident}/{$}", p.handleResource)
	mux.HandleFunc("GET /api/v2/{kind}/{ident}", p.handleResource)
	return mux
}

type healthStatus struct {
	Status    string           `json:"status"`
	RateLimit *rateLimitStatus `json:"rate_limit,omitempty"`
	Cache     cache.Stats      `json:"cache"`
}

type rateLimitStatus struct {
	Unlimited   bool    `json:"unlimited"`
	Limit       float64 `json:"limit,omitempty"`
	Burst       int     `json:"burst"`
	Tokens      float64 `json:"tokens,omitempty"`
	Throttled   bool    `json:"throttled"`
	NextTokenIn string  `json:"next_token_in,omitempty"`
}

func (p *proxy) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Cache: p.client.Stats()}

	if state, ok := p.client.RateLimit(); ok {
		// An unlimited limiter reports infinite values JSON cannot encode.
		rl := &rateLimitStatus{Unlimited: state.Unlimited(), Burst: state.Burst}
		if !rl.Unlimited {
			rl.Limit = state.Limit
			rl.Tokens = state.Tokens
			rl.Throttled = state.IsThrottled()
			if wait := state.TimeUntilToken(); wait > 0 {
				rl.NextTokenIn = wait.String()
			}
		}
		status.RateLimit = rl
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to write health status")
	}
}

func (p *proxy) handleResource(w http.ResponseWriter, r *http.Request) {
	key := resource.ParseKey(resource.Kind(r.PathValue("kind")), r.PathValue("ident"))
	if err := key.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state := p.client.State(p.client.ResourceURL(key))
	res, err := client.FetchKey[json.RawMessage](r.Context(), p.client, key)
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	writeJSON(w, state, res.Data)
}

func (p *proxy) handleList(w http.ResponseWriter, r *http.Request) {
	kind := resource.Kind(r.PathValue("kind"))
	pageURL := p.client.PageURL(kind, 1)
	if r.URL.RawQuery != "" {
		pageURL = strings.TrimRight(p.client.Config().BaseURL, "/") + "/" + kind.String() + "/?" + r.URL.RawQuery
	}

	state := p.client.State(pageURL)
	page, err := client.FetchPageURL[json.RawMessage](r.Context(), p.client, pageURL)
	if err != nil {
		p.writeError(w, r, err)
		return
	}

	body, err := json.Marshal(page)
	if err != nil {
		p.writeError(w, r, err)
		return
	}
	writeJSON(w, state, body)
}

func writeJSON(w http.ResponseWriter, state cache.EntryState, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if state == cache.StateReady {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// writeError maps the client error taxonomy onto proxy status codes.
func (p *proxy) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway

	var fetchErr *client.FetchError
	switch {
	case errors.As(err, &fetchErr) && fetchErr.Class == client.ErrorClassClient && fetchErr.StatusCode != 0:
		// Pass 4xx answers of the API through
		status = fetchErr.StatusCode
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	p.logger.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Proxy request failed")
	http.Error(w, err.Error(), status)
}
