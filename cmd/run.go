// Package cmd defines and implements the CLI commands for the alertdigest
// executable.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/api"
	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
	"github.com/alertdigest/alertdigest/internal/digest"
	"github.com/alertdigest/alertdigest/internal/fetch"
	idgen "github.com/alertdigest/alertdigest/internal/id/uuid"
	"github.com/alertdigest/alertdigest/internal/normalize"
	"github.com/alertdigest/alertdigest/internal/pipeline"
	"github.com/alertdigest/alertdigest/internal/progress"
	"github.com/alertdigest/alertdigest/internal/progress/sinks"
	"github.com/alertdigest/alertdigest/internal/store"
	storememory "github.com/alertdigest/alertdigest/internal/store/memory"
	"github.com/alertdigest/alertdigest/internal/summarize"
)

var (
	runInput   string
	runOutput  string
	runWorkers int
	runNoCache bool
	runOffline bool
	runTimeout time.Duration
)

// newRunCmd creates and configures the 'run' subcommand, the whole point of
// the binary: one alert email's articles in, one Markdown digest out.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetches, summarizes, and renders one digest",
		Long: `Reads an article list extracted from an alert email, pushes every article
through the fetch, normalize, and summarize pipeline under a bounded worker
pool, and writes the assembled Markdown digest.

The article list is a JSON array of objects with "title", "url", and the
optional "publisher" and "snippet" fields.`,

		RunE: runDigestCommand,
	}

	cmd.Flags().StringVarP(&runInput, "input", "i", "", "article list JSON file, '-' for stdin")
	cmd.Flags().StringVarP(&runOutput, "output", "o", "", "digest output file (default stdout)")
	cmd.Flags().IntVar(&runWorkers, "workers", 0, "worker pool size override")
	cmd.Flags().BoolVar(&runNoCache, "no-cache", false, "bypass fetch cache reads for this run")
	cmd.Flags().BoolVar(&runOffline, "offline", false, "summarize with local excerpts, no model calls")
	cmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort the run after this duration (0 means no limit)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runDigestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()
	cfg := appInstance.GetConfig()
	if runWorkers > 0 {
		cfg.Pipeline.Workers = runWorkers
	}

	refs, err := readArticles(runInput, cmd.InOrStdin())
	if err != nil {
		return err
	}

	headers, err := loadHeaders(cfg.Fetch.HeadersFile, logger)
	if err != nil {
		return err
	}

	strategies, headless, err := buildStrategies(cfg, headers, logger)
	if err != nil {
		return err
	}
	if headless != nil {
		defer func() {
			if cerr := headless.Close(cmd.Context()); cerr != nil {
				logger.Warn("failed to close headless browser", zap.Error(cerr))
			}
		}()
	}

	var cache *fetch.Cache
	if cfg.Fetch.CacheEnabled {
		cache = fetch.NewCache()
	}
	orchestrator := fetch.NewOrchestrator(strategies, cache, logger)
	normalizer := normalize.New(cfg.Normalize, logger)

	summarizer, err := buildSummarizer(cfg.Summarize, runOffline, logger)
	if err != nil {
		return err
	}

	runID, err := idgen.NewUUIDGenerator().NewRunID()
	if err != nil {
		return fmt.Errorf("allocate run id: %w", err)
	}

	repo := storememory.NewRunStore()
	hub, err := buildHub(cfg.Progress, repo, logger)
	if err != nil {
		return err
	}
	opsSrv := startOpsServer(cfg.Ops, repo, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	ids := strategyIDs(strategies)
	coordinator := pipeline.NewCoordinator(pipeline.Config{
		Workers:    cfg.Pipeline.Workers,
		AllowCache: !runNoCache,
		Strategies: ids,
	}, orchestrator, normalizer, summarizer, hub, logger)

	logger.Info("starting digest run",
		zap.String("run_id", runID.String()),
		zap.Int("articles", len(refs)),
		zap.Int("workers", cfg.Pipeline.Workers),
	)
	start := time.Now()
	results := coordinator.ProcessAll(ctx, runID, refs)
	elapsed := time.Since(start)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if cerr := hub.Close(closeCtx); cerr != nil {
		logger.Warn("progress hub did not drain cleanly", zap.Error(cerr))
	}
	stopOpsServer(opsSrv, logger)

	report := pipeline.Assemble(refs, results)
	tally := pipeline.Tally(ids, results)

	meta := digest.Metadata{
		RunID:       runID,
		GeneratedAt: time.Now(),
		Elapsed:     elapsed,
		Tally:       tally,
	}
	if err := writeDigest(cmd, runOutput, meta, report); err != nil {
		return err
	}

	logger.Info("digest run finished",
		zap.String("run_id", runID.String()),
		zap.Int("total", report.Total()),
		zap.Int("summarized", len(report.Summaries)),
		zap.Int("missing", len(report.Missing)),
		zap.String("tally", tally),
		zap.Duration("elapsed", elapsed),
	)

	if ctx.Err() != nil {
		return fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	return nil
}

// readArticles loads and validates the input article list. "-" reads stdin.
func readArticles(path string, stdin io.Reader) ([]article.Reference, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read article list: %w", err)
	}

	var refs []article.Reference
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("parse article list: %w", err)
	}
	if len(refs) == 0 {
		return nil, errors.New("article list is empty")
	}
	for i, ref := range refs {
		if strings.TrimSpace(ref.URL) == "" {
			return nil, fmt.Errorf("article %d has no url", i)
		}
	}
	return refs, nil
}

// loadHeaders reads the per-domain header profiles. A missing file is not an
// error; the primary tier just sends its defaults.
func loadHeaders(path string, logger *zap.Logger) (config.Headers, error) {
	headers, err := config.LoadHeaders(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("headers file absent, continuing with empty profiles", zap.String("path", path))
			return config.Headers{}, nil
		}
		return config.Headers{}, err
	}
	return headers, nil
}

// buildStrategies assembles the fetch escalation chain in tier order. The
// returned HeadlessStrategy is non-nil only when the headless tier came up
// and must then be closed by the caller.
func buildStrategies(cfg config.Config, headers config.Headers, logger *zap.Logger) ([]fetch.Strategy, *fetch.HeadlessStrategy, error) {
	var detector *fetch.ChallengeDetector
	if cfg.Fetch.Detector.Enabled {
		detector = fetch.NewChallengeDetector(
			cfg.Fetch.Detector.MinHTMLBytes,
			cfg.Fetch.Detector.Keywords,
			cfg.Fetch.Detector.Selectors,
		)
	}

	strategies := []fetch.Strategy{
		fetch.NewDirectStrategy(cfg.Fetch.Primary, headers, detector, logger),
		fetch.NewReaderStrategy(cfg.Fetch.Reader, logger),
		fetch.NewRenderCLIStrategy(cfg.Fetch.RenderCLI, logger),
	}

	if !cfg.Fetch.Headless.Enabled {
		return strategies, nil, nil
	}
	headless, err := fetch.NewHeadlessStrategy(cfg.Fetch.Headless, cfg.Fetch.Primary.UserAgent, logger)
	switch {
	case err == nil:
		return append(strategies, headless), headless, nil
	case errors.Is(err, fetch.ErrHeadlessDisabled):
		logger.Warn("headless tier disabled despite enable flag, continuing with three tiers")
		return strategies, nil, nil
	default:
		return nil, nil, fmt.Errorf("init headless tier: %w", err)
	}
}

// buildSummarizer picks the summarization backend. Offline mode and a missing
// API key both select the excerpt fallback so a run always completes.
func buildSummarizer(cfg config.SummarizeConfig, offline bool, logger *zap.Logger) (summarize.Summarizer, error) {
	if offline {
		logger.Info("offline mode, summaries are leading-sentence excerpts")
		return summarize.NewExcerpt(0), nil
	}
	if cfg.APIKey == "" {
		logger.Warn("no summarize API key configured, falling back to excerpts")
		return summarize.NewExcerpt(0), nil
	}
	switch cfg.Provider {
	case "anthropic":
		return summarize.NewAnthropic(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown summarize provider: %s", cfg.Provider)
	}
}

// buildHub wires the progress sinks behind the event hub. The store sink
// feeds the ops API; the Prometheus sink feeds /metrics.
func buildHub(cfg config.ProgressConfig, repo store.RunRepository, logger *zap.Logger) (*progress.Hub, error) {
	hubSinks := []progress.Sink{sinks.NewStoreSink(repo, logger)}
	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		return nil, fmt.Errorf("register progress metrics: %w", err)
	}
	hubSinks = append(hubSinks, promSink)
	if cfg.LogEvents {
		hubSinks = append(hubSinks, sinks.NewLogSink(logger))
	}

	return progress.NewHub(progress.Config{
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval(),
		Logger:        logger,
	}, hubSinks...), nil
}

// startOpsServer exposes health, metrics, and run-inspection endpoints while
// the run executes. Returns nil when no listen address is configured.
func startOpsServer(cfg config.OpsConfig, repo store.RunRepository, logger *zap.Logger) *http.Server {
	if cfg.ListenAddr == "" {
		return nil
	}
	apiServer := api.NewServer(repo, nil, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
	return srv
}

func stopOpsServer(srv *http.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("ops server shutdown failed", zap.Error(err))
	}
}

func strategyIDs(strategies []fetch.Strategy) []string {
	ids := make([]string, len(strategies))
	for i, s := range strategies {
		ids[i] = s.ID()
	}
	return ids
}

// writeDigest renders the report to the output file, or stdout when no path
// is given.
func writeDigest(cmd *cobra.Command, path string, meta digest.Metadata, report pipeline.RunReport) error {
	renderer := digest.NewRenderer()
	if path == "" {
		return renderer.Render(cmd.OutOrStdout(), meta, report)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create digest file: %w", err)
	}
	if err := renderer.Render(f, meta, report); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close digest file: %w", err)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
