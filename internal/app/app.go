package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wayfarer-planner/server/internal/agent/graph"
	"github.com/wayfarer-planner/server/internal/agent/graph/nodes"
	"github.com/wayfarer-planner/server/internal/agent/graph/observers"
	"github.com/wayfarer-planner/server/internal/agent/history"
	"github.com/wayfarer-planner/server/internal/agent/model"
	"github.com/wayfarer-planner/server/internal/agent/repo"
	"github.com/wayfarer-planner/server/internal/clients/pricing"
	"github.com/wayfarer-planner/server/internal/clients/weather"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

// App is the composed planner: runner, retrieval store, plan history and metrics.
type App struct {
	Config  *Config
	Runner  graph.Runner
	History *history.Manager
	Metrics *observers.Metrics
	Store   *Store
	Indexed int

	redis         *redis.Client
	metricsServer *http.Server
}

// New wires every component from cfg. The document index is built before
// the first run so retrieval never races with indexing.
func New(ctx context.Context, cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Metrics: observers.NewMetrics()}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	if a.Indexed, err = store.EnsureBuilt(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}

	priceClient, err := pricing.NewClient(cfg.Pricing)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Runner, err = graph.BuildPlanner(ctx, graph.Config{
		ChatModel: nodes.ChatModelConfig{LLM: cfg.LLM, Planner: cfg.Planner},
		Workflow:  cfg.Workflow,
		Retriever: store.Retriever(),
		Pricing:   pricing.NewCachedLookup(priceClient, cfg.Pricing.CacheTTL),
		Weather:   weather.NewClient(cfg.Weather),
		Metrics:   a.Metrics,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Redis.Enabled() {
		if err := a.openHistory(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}

	logx.Info().
		Str("env", cfg.Env().String()).
		Str("provider", cfg.LLM.Provider).
		Str("vector_store", cfg.RAG.VectorStore).
		Int("chunks", a.Indexed).
		Bool("history", a.History != nil).
		Msg("Planner ready")
	return a, nil
}

func (a *App) openHistory() error {
	ttl, err := a.Config.HistoryTTL()
	if err != nil {
		return err
	}
	rdb, err := a.Config.Redis.New()
	if err != nil {
		return errx.WrapRedis(err)
	}
	a.redis = rdb
	a.History = history.NewManager(repo.NewRedisPlanRepository(rdb, ttl), a.Config.History)
	return nil
}

// OpenHistory connects only the plan history store, for commands that
// read past runs without planning.
func OpenHistory(cfg *Config) (*App, error) {
	if !cfg.Redis.Enabled() {
		return nil, errx.Configuration("REDIS_URL is required for plan history")
	}
	a := &App{Config: cfg}
	if err := a.openHistory(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Metrics.Registry(), promhttp.HandlerOpts{}))
	a.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	logx.Info().Str("addr", addr).Msg("Serving metrics")
}

const recordTimeout = 5 * time.Second

// Record saves a run to plan history. Runs rejected before starting have
// no run id and are skipped. The write outlives a cancelled ctx so that
// interrupted runs are recorded too.
func (a *App) Record(ctx context.Context, state model.PlanningState) {
	if a.History == nil || state.RunID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := a.History.Record(ctx, state); err != nil {
		logx.Warn().Err(err).Str("run_id", state.RunID).Msg("Failed to record plan history")
	}
}

// Close releases every connection the app opened.
func (a *App) Close() error {
	var errs []error
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.metricsServer.Shutdown(ctx))
		cancel()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
