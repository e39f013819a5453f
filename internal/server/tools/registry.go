// Package tools exposes the ledger operations as named tools. Every call
// returns an envelope; errors and panics never leave a tool.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/logging"
	"github.com/dmitrijs2005/ledgerd/internal/server/envelope"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrUnknownTool is returned by Call for names that were never registered.
var ErrUnknownTool = errors.New("unknown tool")

// Handler runs one tool. A non-nil error is turned into an error envelope.
type Handler func(ctx context.Context, args Args) (envelope.Envelope, error)

// Services are the business services the tools call into.
type Services struct {
	Gate       *services.Gate
	Users      *services.UserService
	Challenges *services.ChallengeService
	Records    *services.RecordService
	Reports    *services.ReportService
	Exports    *services.ExportService
}

type metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		calls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ledgerd",
				Name:      "tool_calls_total",
				Help:      "Tool calls by tool and result status.",
			},
			[]string{"tool", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ledgerd",
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
	}
}

// Registry maps tool names to handlers.
type Registry struct {
	svc      Services
	handlers map[string]Handler
	log      logging.Logger
	metrics  *metrics
}

// New registers every ledger tool. reg may be nil, in which case metrics are
// collected but not exported.
func New(svc Services, l logging.Logger, reg prometheus.Registerer) *Registry {
	r := &Registry{
		svc:      svc,
		handlers: make(map[string]Handler),
		log:      l.With("module", "tools"),
		metrics:  newMetrics(reg),
	}

	r.registerAuthTools()
	r.registerRecordTools()
	r.registerReportTools()

	return r
}

// Register adds or replaces a handler.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// Names returns registered tool names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Call runs the named tool. The only error it returns is ErrUnknownTool.
func (r *Registry) Call(ctx context.Context, name string, args Args) (env envelope.Envelope, err error) {
	h, ok := r.handlers[name]
	if !ok {
		return envelope.Envelope{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error(ctx, "tool panicked", "tool", name, "panic", fmt.Sprint(p))
			env = envelope.FromError(common.ErrorInternal)
		}
		r.metrics.calls.WithLabelValues(name, env.Status()).Inc()
		r.metrics.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		r.log.Info(ctx, "tool call", "tool", name, "status", env.Status(), "duration", time.Since(start).String())
	}()

	var herr error
	env, herr = h(ctx, args)
	if herr != nil {
		r.logError(ctx, name, herr)
		env = envelope.FromError(herr)
	}

	return env, nil
}

func (r *Registry) logError(ctx context.Context, name string, err error) {
	switch kind := common.KindOf(err); kind {
	case common.KindInternal, common.KindTransient:
		r.log.Error(ctx, "tool failed", "tool", name, "kind", kind.String(), "error", err)
	default:
		r.log.Warn(ctx, "tool rejected", "tool", name, "kind", kind.String(), "reason", common.PublicMessage(err))
	}
}

type tokenKey struct{}

// WithToken stores a bearer token taken from transport metadata. A token
// passed as a tool argument takes precedence.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context, arg string) string {
	if arg != "" {
		return arg
	}
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// verified runs op for a caller with a verified email.
func (r *Registry) verified(ctx context.Context, token string, op services.Op) error {
	return r.svc.Gate.Wrap(op)(ctx, tokenFrom(ctx, token))
}

// authenticated runs op for any known caller.
func (r *Registry) authenticated(ctx context.Context, token string, op services.Op) error {
	return r.svc.Gate.Authenticated(op)(ctx, tokenFrom(ctx, token))
}
