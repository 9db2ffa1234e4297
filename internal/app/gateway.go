package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samvad-hq/samvad-request-gateway/internal/config"
	"github.com/samvad-hq/samvad-request-gateway/internal/domain"
	"github.com/samvad-hq/samvad-request-gateway/internal/logger"
	"github.com/samvad-hq/samvad-request-gateway/internal/metrics"
	"github.com/samvad-hq/samvad-request-gateway/internal/storage"
	"github.com/samvad-hq/samvad-request-gateway/pkg/endpoints"
	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
	"github.com/samvad-hq/samvad-request-gateway/pkg/httpclient"
	"github.com/samvad-hq/samvad-request-gateway/pkg/publishers"
	"github.com/samvad-hq/samvad-request-gateway/pkg/surface"
)

// Options tune how the runtime talks to the user. Loading, QuietErrors,
// Headers and Query apply to every call issued through the runtime.
type Options struct {
	// Out receives loading lines and surfaced errors. Defaults to stderr.
	Out io.Writer
	// Transport replaces the resty transport.
	Transport httpclient.Transport

	Loading     bool
	QuietErrors bool
	Headers     map[string]string
	Query       map[string]any
}

// Runtime wires the gateway to its surfaces, journal, publishers and metrics.
type Runtime struct {
	cfg       *config.Config
	gw        *gateway.Gateway
	endpoints *endpoints.Registry
	journal   storage.Journal
	fanout    *publishers.Fanout
	metrics   *prometheus.Registry
	log       logger.Logger
	opts      Options
	// batchLimit is cfg.BatchConcurrency, at least 1.
	batchLimit int
}

// NewRuntime builds a runtime from config files.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}

	r := &Runtime{cfg: cfg, log: log, opts: opts, batchLimit: max(cfg.BatchConcurrency, 1)}

	reg, err := loadEndpoints(cfg.EndpointsFile, log)
	if err != nil {
		return nil, err
	}
	r.endpoints = reg

	fanout, err := buildPublishers(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}
	r.fanout = fanout

	journal, err := storage.NewJournal(cfg.JournalType, cfg.JournalPath, storage.Options{
		EntryTTL:        cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	r.journal = journal
	log.InfoObj("journal initialized", "journal_config", map[string]any{
		"type":                     cfg.JournalType,
		"path":                     cfg.JournalPath,
		"entry_ttl_seconds":        int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	r.metrics = prometheus.NewRegistry()
	collector, err := metrics.NewCollector(r.metrics)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	surfaces := surface.Multi{
		surface.NewTerminal(opts.Out, false),
		surface.NewLog(log),
		surface.NewJournal(journal),
		surface.NewNotify(fanout, cfg.AppName),
	}

	gwOpts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithSurface(surfaces),
	}
	if cfg.RequestIDHeader != "" {
		gwOpts = append(gwOpts, gateway.WithRequestInterceptors(gateway.RequestID(cfg.RequestIDHeader)))
	}
	if token := cfg.AuthToken; token != "" {
		gwOpts = append(gwOpts, gateway.WithRequestInterceptors(gateway.BearerToken(func(context.Context) (string, error) {
			return token, nil
		})))
	}
	gwOpts = append(gwOpts, collector.Options()...)

	transport := opts.Transport
	if transport == nil {
		transport = httpclient.NewRestyTransport(cfg.RequestTimeout)
	}

	gw, err := gateway.New(gateway.Config{
		Timeout:        cfg.RequestTimeout,
		DefaultHeaders: cfg.DefaultHeaders,
		BaseURL:        cfg.BaseURL,
	}, transport, gwOpts...)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("init gateway: %w", err)
	}
	r.gw = gw

	return r, nil
}

// loadEndpoints reads the endpoint profiles. A missing file leaves the
// registry empty; ad-hoc calls still work without it.
func loadEndpoints(path string, log logger.Logger) (*endpoints.Registry, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.WarnObj("endpoints file not found; named calls disabled", "endpoints_file", path)
		return nil, nil
	}

	reg, err := endpoints.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load endpoints registry: %w", err)
	}
	all := reg.All()
	ids := make([]string, 0, len(all))
	for _, e := range all {
		ids = append(ids, e.ID)
	}
	log.InfoObj("endpoints registry loaded", "endpoints_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})
	return reg, nil
}

func buildPublishers(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Gateway returns the configured gateway.
func (r *Runtime) Gateway() *gateway.Gateway {
	if r == nil {
		return nil
	}
	return r.gw
}

// Call issues one call through APICall.
func (r *Runtime) Call(ctx context.Context, call gateway.Call) (gateway.Body, error) {
	if r == nil || r.gw == nil {
		return nil, fmt.Errorf("runtime is not initialized")
	}
	return r.gw.APICall(ctx, r.prepare(call))
}

// prepare applies the runtime-wide call options.
func (r *Runtime) prepare(call gateway.Call) gateway.Call {
	if r.opts.Loading {
		call.ShowLoading = true
	}
	if r.opts.QuietErrors {
		call.ShowError = false
	}
	if len(r.opts.Headers) > 0 {
		headers := make(map[string]string, len(call.Config.Headers)+len(r.opts.Headers))
		for k, v := range call.Config.Headers {
			headers[k] = v
		}
		for k, v := range r.opts.Headers {
			headers[k] = v
		}
		call.Config.Headers = headers
	}
	if len(r.opts.Query) > 0 {
		query := make(map[string]any, len(call.Query)+len(r.opts.Query))
		for k, v := range call.Query {
			query[k] = v
		}
		for k, v := range r.opts.Query {
			query[k] = v
		}
		call.Query = query
	}
	return call
}

// Endpoints returns the loaded endpoint profiles.
func (r *Runtime) Endpoints() []endpoints.Endpoint {
	if r == nil {
		return nil
	}
	return r.endpoints.All()
}

// CallEndpoint issues the named endpoint profile.
func (r *Runtime) CallEndpoint(ctx context.Context, id string) (gateway.Body, error) {
	if r == nil {
		return nil, fmt.Errorf("runtime is not initialized")
	}
	e, ok := r.endpoints.ByID(id)
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", id)
	}
	return r.Call(ctx, e.ToCall())
}

// Recent lists the newest surfaced failures from the journal.
func (r *Runtime) Recent(limit int) ([]domain.Failure, error) {
	if r == nil || r.journal == nil {
		return nil, nil
	}
	return r.journal.Recent(limit)
}

// Metrics exposes the registry backing the gateway counters.
func (r *Runtime) Metrics() prometheus.Gatherer {
	if r == nil {
		return nil
	}
	return r.metrics
}

// WriteMetrics dumps the gateway counters in the text exposition format.
func (r *Runtime) WriteMetrics(path string) error {
	if r == nil || r.metrics == nil {
		return fmt.Errorf("runtime is not initialized")
	}
	if err := prometheus.WriteToTextfile(path, r.metrics); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Close releases the journal and publisher clients, logging any errors.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.log.ErrorObj("journal close failed", "error", err)
		}
	}
	if err := r.fanout.Close(); err != nil {
		r.log.ErrorObj("publishers close failed", "error", err)
	}
}
