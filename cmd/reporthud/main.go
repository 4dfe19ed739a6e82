// Command reporthud normalizes a battle-report transcript and extracts the
// game entities it mentions, producing the JSON artifact the HUD overlay
// consumes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/adrpadua/battlereport-hud/internal/config"
	"github.com/adrpadua/battlereport-hud/internal/health"
	"github.com/adrpadua/battlereport-hud/internal/observe"
	"github.com/adrpadua/battlereport-hud/internal/registry"
	"github.com/adrpadua/battlereport-hud/internal/resilience"
	"github.com/adrpadua/battlereport-hud/internal/transcript"
	"github.com/adrpadua/battlereport-hud/internal/transcript/llmmap"
	"github.com/adrpadua/battlereport-hud/internal/validate"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm/anyllm"
	"github.com/adrpadua/battlereport-hud/pkg/provider/llm/openai"
	"github.com/adrpadua/battlereport-hud/pkg/store"
	pgstore "github.com/adrpadua/battlereport-hud/pkg/store/postgres"
	"github.com/adrpadua/battlereport-hud/pkg/types"
)

// Circuit breaker thresholds for the outbound inference chain.
const (
	breakerMaxFailures = 5
	breakerCooldown    = 30 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputPath := flag.String("input", "", "transcript file: WebVTT (.vtt) or a JSON array of segments")
	outputPath := flag.String("output", "-", "where to write the extraction artifact (- for stdout)")
	reportID := flag.String("id", "", "report ID used when persisting (default: input file basename)")
	reportTitle := flag.String("title", "", "human-readable report title used when persisting")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "reporthud: -input is required")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "reporthud: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "reporthud: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("reporthud starting",
		"config", *configPath,
		"input", *inputPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "reporthud"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	if cfg.Server.MetricsAddr != "" {
		srv := startMetricsServer(cfg.Server.MetricsAddr, readinessCheckers(cfg))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// ── Read transcript ───────────────────────────────────────────────────────
	segments, err := readSegments(*inputPath)
	if err != nil {
		slog.Error("failed to read transcript", "path", *inputPath, "err", err)
		return 1
	}
	slog.Info("transcript loaded", "segments", len(segments))

	// ── Inference chain ───────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	executor, err := buildExecutor(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build inference chain", "err", err)
		return 1
	}

	// ── Reference registry ────────────────────────────────────────────────────
	names, err := buildRegistry(cfg)
	if err != nil {
		slog.Error("failed to build reference registry", "err", err)
		return 1
	}

	// ── Extractor ─────────────────────────────────────────────────────────────
	opts := []transcript.ExtractorOption{
		transcript.WithDeclaredFactions(cfg.Report.Factions),
		transcript.WithMetrics(metrics),
	}
	if executor != nil {
		opts = append(opts, transcript.WithExecutor(executor))
	}
	if len(cfg.Report.Units) > 0 {
		opts = append(opts, transcript.WithUnitNames(cfg.Report.Units))
	}
	if cfg.Pipeline.FuzzyUnitFloor > 0 {
		opts = append(opts, transcript.WithFuzzyFloor(cfg.Pipeline.FuzzyUnitFloor))
	}
	if cfg.Pipeline.ScannerFloor > 0 {
		opts = append(opts, transcript.WithScannerFloor(cfg.Pipeline.ScannerFloor))
	}
	if cfg.Validation.URL != "" {
		exclude := make([]types.Category, 0, len(cfg.Validation.ExcludeCategories))
		for _, c := range cfg.Validation.ExcludeCategories {
			exclude = append(exclude, types.Category(c))
		}
		opts = append(opts, transcript.WithValidator(
			validate.New(cfg.Validation.URL), exclude, cfg.Validation.MinConfidence))
	}

	extractor := transcript.NewExtractor(names, opts...)

	// ── Run the pipeline ──────────────────────────────────────────────────────
	result, err := extractor.Extract(ctx, segments)
	if err != nil {
		slog.Error("extraction failed", "err", err)
		return 1
	}
	slog.Info("extraction complete",
		"segments", len(result.Segments),
		"terms", len(result.TermMap),
		"matches", len(result.Matches),
	)

	// ── Write the artifact ────────────────────────────────────────────────────
	if err := writeResult(*outputPath, result); err != nil {
		slog.Error("failed to write artifact", "err", err)
		return 1
	}

	// ── Persist (optional) ────────────────────────────────────────────────────
	if cfg.Store.PostgresDSN != "" {
		if err := persistResult(ctx, cfg.Store.PostgresDSN, *inputPath, *reportID, *reportTitle, result); err != nil {
			slog.Error("failed to persist report", "err", err)
			return 1
		}
	}

	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in inference factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// The native OpenAI client supports structured outputs directly.
	reg.RegisterInference("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining hosted providers share the same pattern: optional APIKey
	// plus optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterInference(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterInference("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})
}

// buildExecutor assembles the inference mapper from the configured provider
// and its fallbacks. Returns nil when no inference provider is configured;
// the pipeline then runs on pattern and phonetic matching alone.
func buildExecutor(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (*llmmap.Executor, error) {
	primaryName := cfg.Providers.Inference.Name
	if primaryName == "" {
		slog.Info("no inference provider configured — running without the external mapping pass")
		return nil, nil
	}

	primary, err := reg.CreateInference(cfg.Providers.Inference)
	if err != nil {
		return nil, fmt.Errorf("create inference provider %q: %w", primaryName, err)
	}
	slog.Info("provider created", "kind", "inference", "name", primaryName, "model", cfg.Providers.Inference.Model)

	chain := resilience.NewProviderChain(primaryName, primary)
	for _, entry := range cfg.Providers.Fallbacks {
		p, err := reg.CreateInference(entry)
		if err != nil {
			return nil, fmt.Errorf("create fallback provider %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, p)
		slog.Info("provider created", "kind", "fallback", "name", entry.Name, "model", entry.Model)
	}

	execOpts := []llmmap.ExecutorOption{
		llmmap.WithBreaker(resilience.NewCircuitBreaker(breakerMaxFailures, breakerCooldown)),
		llmmap.WithExecutorMetrics(metrics),
	}
	if cfg.Pipeline.ChunkCharBudget > 0 {
		execOpts = append(execOpts, llmmap.WithCharBudget(cfg.Pipeline.ChunkCharBudget))
	}
	if cfg.Pipeline.ChunkOverlapSegments > 0 {
		execOpts = append(execOpts, llmmap.WithOverlap(cfg.Pipeline.ChunkOverlapSegments))
	}
	if cfg.Pipeline.Workers > 0 {
		execOpts = append(execOpts, llmmap.WithWorkers(cfg.Pipeline.Workers))
	}
	if cfg.Pipeline.MaxRetries > 0 {
		execOpts = append(execOpts, llmmap.WithMaxRetries(cfg.Pipeline.MaxRetries))
	}
	if d := cfg.Pipeline.BaseBackoff.Std(); d > 0 {
		execOpts = append(execOpts, llmmap.WithBaseBackoff(d))
	}

	return llmmap.NewExecutor(llmmap.NewMapper(chain), execOpts...), nil
}

// buildRegistry assembles the reference-name registry from the bundled data
// plus any configured extra lists and dynamic objective source.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	var opts []registry.Option

	if cfg.Registry.ListsFile != "" {
		extra, err := registry.LoadListsFile(cfg.Registry.ListsFile)
		if err != nil {
			return nil, fmt.Errorf("load lists file %q: %w", cfg.Registry.ListsFile, err)
		}
		opts = append(opts, registry.WithExtraLists(extra))
	}
	if cfg.Registry.ObjectivesURL != "" {
		opts = append(opts, registry.WithObjectiveFetcher(
			registry.NewHTTPObjectiveFetcher(cfg.Registry.ObjectivesURL, nil)))
	}
	if ttl := cfg.Registry.ObjectivesTTL.Std(); ttl > 0 {
		opts = append(opts, registry.WithObjectivesTTL(ttl))
	}

	return registry.New(opts...), nil
}

// ── Transcript input ──────────────────────────────────────────────────────────

// readSegments loads transcript segments from path. WebVTT files are parsed
// by extension; anything else is decoded as a JSON array of segments.
func readSegments(path string) ([]types.TranscriptSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".vtt") {
		return transcript.ParseWebVTT(f)
	}

	var segments []types.TranscriptSegment
	if err := json.NewDecoder(f).Decode(&segments); err != nil {
		return nil, fmt.Errorf("decode segments JSON: %w", err)
	}
	return segments, nil
}

// ── Artifact output ───────────────────────────────────────────────────────────

func writeResult(path string, result *types.ExtractionResult) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func persistResult(ctx context.Context, dsn, inputPath, id, title string, result *types.ExtractionResult) error {
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	}

	st, err := pgstore.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	report := store.Report{
		ID:        id,
		Title:     title,
		CreatedAt: time.Now().UTC(),
		Result:    result,
	}
	if err := st.SaveReport(ctx, report); err != nil {
		return err
	}
	slog.Info("report persisted", "id", id)
	return nil
}

// ── Metrics server ────────────────────────────────────────────────────────────

// readinessCheckers builds one probe per optional collaborator the config
// actually names.
func readinessCheckers(cfg *config.Config) []health.Checker {
	var checkers []health.Checker
	if cfg.Validation.URL != "" {
		checkers = append(checkers, health.EndpointChecker("validation", cfg.Validation.URL, nil))
	}
	if cfg.Registry.ObjectivesURL != "" {
		checkers = append(checkers, health.EndpointChecker("objectives", cfg.Registry.ObjectivesURL, nil))
	}
	return checkers
}

// startMetricsServer serves /metrics plus liveness and readiness probes on
// addr. Errors other than a clean close are logged, not fatal: the pipeline
// still produces its artifact when the scrape endpoint cannot bind.
func startMetricsServer(addr string, checkers []health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server error", "err", err)
		}
	}()
	return srv
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
