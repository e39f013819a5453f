// Package httpapi serves the ledger tools as JSON over HTTP.
//
//	POST /v1/tools/{name}   body: tool arguments as a JSON object
//	GET  /v1/tools          names of the registered tools
//	GET  /healthz
//	GET  /metrics
//
// Tool failures are reported inside the envelope with status 200; non-200
// codes mean the request never reached a tool.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/ledgerd/internal/logging"
	"github.com/dmitrijs2005/ledgerd/internal/server/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

type handler struct {
	tools  *tools.Registry
	logger logging.Logger
}

// NewRouter builds the HTTP routes. gatherer backs /metrics.
func NewRouter(r *tools.Registry, l logging.Logger, gatherer prometheus.Gatherer) http.Handler {
	h := &handler{tools: r, logger: l}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Route("/v1/tools", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/{name}", h.call)
	})

	return mux
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.tools.Names()})
}

func (h *handler) call(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.tools.Has(name) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tool: " + name})
		return
	}

	args, err := decodeArgs(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx := r.Context()
	if token := bearer(r.Header.Get("Authorization")); token != "" {
		ctx = tools.WithToken(ctx, token)
	}

	env, err := h.tools.Call(ctx, name, args)
	if err != nil {
		h.logger.Error(ctx, "tool call failed", "tool", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// decodeArgs reads a JSON object. An empty body means no arguments.
func decodeArgs(body io.Reader) (tools.Args, error) {
	b, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return tools.Args{}, nil
	}

	// числа приходят в инструменты как json.Number с исходным литералом
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var args tools.Args
	if err := dec.Decode(&args); err != nil {
		return nil, errors.New("body must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("body must be a JSON object")
	}
	if args == nil {
		args = tools.Args{}
	}
	return args, nil
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
