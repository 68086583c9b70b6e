// Package bridge wires C1-C11 into a running process: a handful of
// fixed-cadence background loops plus the status/introspection surface
// cmd/spark's CLI drives. Grounded on the teacher's cmd/server/main.go
// wiring style (sequential construction, log.Fatalf on init error,
// defer cleanup) generalized from a single stdio server loop to several
// goroutine-per-loop workers, since a step-graph orchestrator
// (internal/orchestration in the teacher) solves a different problem
// than a set of independent polling cycles.
package bridge

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"unified-thinking/internal/cogstore"
	"unified-thinking/internal/config"
	"unified-thinking/internal/contradiction"
	"unified-thinking/internal/embeddings"
	"unified-thinking/internal/evolution"
	"unified-thinking/internal/pipeline"
	"unified-thinking/internal/predictloop"
	"unified-thinking/internal/promotion"
	"unified-thinking/internal/qualitygate"
	"unified-thinking/internal/queue"
	"unified-thinking/internal/semindex"
)

// Config bounds where a Bridge keeps its state and how often each loop
// runs. Zero values fall back to the defaults named in spec §4/§6.
type Config struct {
	HomeDir string

	PredictionInterval time.Duration
	PromotionInterval  time.Duration
	EvolutionInterval  time.Duration
	ReloadInterval     time.Duration

	VoyageAPIKey        string // "" disables real embeddings; MockEmbedder is used instead
	VoyageModel         string
	PromotionAdapterDir string // where FileSink's document lives; defaults under HomeDir
}

func (c *Config) setDefaults() {
	if c.HomeDir == "" {
		c.HomeDir = defaultHomeDir()
	}
	if c.PredictionInterval <= 0 {
		c.PredictionInterval = 60 * time.Second
	}
	if c.PromotionInterval <= 0 {
		c.PromotionInterval = 10 * time.Minute
	}
	if c.EvolutionInterval <= 0 {
		c.EvolutionInterval = 15 * time.Minute
	}
	if c.ReloadInterval <= 0 {
		c.ReloadInterval = 5 * time.Second
	}
	if c.VoyageModel == "" {
		c.VoyageModel = "voyage-3-lite"
	}
	if c.PromotionAdapterDir == "" {
		c.PromotionAdapterDir = c.HomeDir
	}
}

func defaultHomeDir() string {
	if v := os.Getenv("SPARK_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spark"
	}
	return filepath.Join(home, ".spark")
}

// Bridge owns every constructed component and the loops that drive them.
type Bridge struct {
	cfg Config

	Registry *config.Registry
	Queue    *queue.Queue
	Store    *cogstore.Store
	Index    *semindex.Index

	Validator     *qualitygate.Validator
	Pipeline      *pipeline.Engine
	Predictions   *predictloop.Loop
	Contradiction *contradiction.Checker
	Promotion     *promotion.Policy
	PromotionSink *promotion.FileSink

	Reporter   *evolution.Reporter
	History    *evolution.History
	Strategist *evolution.LearningStrategist

	heartbeatPath string
}

// New constructs every C1-C11 component and wires them per §4's data
// flow: C1 -> C7 -> C6(gate+contradiction) -> C3/C4 -> C8 -> C10/C11.
// aggregator may be nil (pattern detection treated as trivially
// successful, per pipeline.NewEngine's own doc).
func New(cfg Config, aggregator pipeline.PatternAggregator) (*Bridge, error) {
	cfg.setDefaults()
	if err := os.MkdirAll(cfg.HomeDir, 0o700); err != nil {
		return nil, fmt.Errorf("bridge: create home dir: %w", err)
	}

	schema := config.DefaultSchema()
	baselinePath := filepath.Join("config", "tuneables.json")
	runtimePath := filepath.Join(cfg.HomeDir, "tuneables.json")
	registry, vr, err := config.NewRegistry(schema, baselinePath, runtimePath)
	if err != nil {
		return nil, fmt.Errorf("bridge: registry: %w", err)
	}
	for _, w := range vr.Warnings {
		log.Printf("bridge: config warning: %s", w)
	}

	q, err := queue.New(queue.Config{
		HomeDir:   cfg.HomeDir,
		MaxEvents: registry.GetInt("queue", "max_events"),
		MaxBytes:  int64(registry.GetInt("queue", "max_bytes")),
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: queue: %w", err)
	}

	store, err := cogstore.Open(filepath.Join(cfg.HomeDir, "cognitive_insights.json"))
	if err != nil {
		return nil, fmt.Errorf("bridge: cogstore: %w", err)
	}

	embedder := embeddingsFor(cfg)

	index, err := semindex.Open(semindex.Config{
		DBPath:         filepath.Join(cfg.HomeDir, "semindex.sqlite"),
		VecPersistPath: filepath.Join(cfg.HomeDir, "vectors"),
		Embedder:       embedder,
		LexicalWeight:  registry.GetFloat("semindex", "lexical_weight"),
		VectorWeight:   registry.GetFloat("semindex", "vector_weight"),
		MMRLambda:      registry.GetFloat("semindex", "mmr_lambda"),
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: semindex: %w", err)
	}

	contradictionLog, err := contradiction.NewRecordWriter(filepath.Join(cfg.HomeDir, "contradictions.json"))
	if err != nil {
		return nil, fmt.Errorf("bridge: contradiction log: %w", err)
	}
	checker := contradiction.NewChecker(contradiction.Config{
		MinSimilarity: registry.GetFloat("contradiction", "min_similarity"),
	}, store, nil, contradictionLog)

	duplicate := qualitygate.NewDuplicateDetector(store, index)
	gate := qualitygate.NewGate(qualitygate.NoAdvisoryTransformer{}, duplicate)
	quarantine, err := qualitygate.NewQuarantineWriter(filepath.Join(cfg.HomeDir, "quarantine", "roast.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("bridge: quarantine: %w", err)
	}
	telemetry := qualitygate.NewTelemetry(filepath.Join(cfg.HomeDir, "validate_telemetry.json"), 20)
	validator := qualitygate.NewValidator(gate, store, index, quarantine, telemetry)
	validator.Contradiction = checker
	validator.FeatureEnabled = registry.GetBool("validate_and_store", "enabled")

	metricsLog, err := pipeline.NewMetricsLog(filepath.Join(cfg.HomeDir, "pipeline_metrics.json"))
	if err != nil {
		return nil, fmt.Errorf("bridge: pipeline metrics: %w", err)
	}
	engine := pipeline.NewEngine(pipeline.Config{
		DefaultBatch: registry.GetInt("pipeline", "min_batch_size"),
		MinBatch:     registry.GetInt("pipeline", "min_batch_size"),
		MaxBatch:     registry.GetInt("pipeline", "max_batch_size"),
		BaseInterval: time.Duration(registry.GetInt("pipeline", "base_interval_seconds")) * time.Second,
	}, q, aggregator, validator, metricsLog)

	aha, err := predictloop.NewFileAhaTracker(filepath.Join(cfg.HomeDir, "hypotheses.json"))
	if err != nil {
		return nil, fmt.Errorf("bridge: aha tracker: %w", err)
	}
	predictions := predictloop.NewPredictionSet()
	loop := predictloop.NewLoop(predictloop.Config{
		PerSourceBudget: registry.GetInt("prediction", "per_source_budget"),
		AutoLinkMinSim:  registry.GetFloat("prediction", "auto_link_min_sim"),
	}, store, q, aha, nil, predictions)

	adapterDoc := filepath.Join(cfg.PromotionAdapterDir, "promoted_insights.json")
	sink, err := promotion.OpenFileSink(adapterDoc)
	if err != nil {
		return nil, fmt.Errorf("bridge: promotion sink: %w", err)
	}
	policy := promotion.NewPolicy(promotion.Config{
		ReliabilityMin: registry.GetFloat("promotion", "reliability_min"),
		ValidationsMin: registry.GetInt("promotion", "validations_min"),
		ConfidenceMin:  registry.GetFloat("promotion", "confidence_min"),
		MinAge:         time.Duration(registry.GetFloat("promotion", "min_age_hours") * float64(time.Hour)),
		AdapterBudget:  registry.GetInt("promotion", "adapter_budget"),
	}, store, sink)

	reportCfg := evolution.ReportConfig{}
	reporter := evolution.NewReporter(reportCfg, store, store, predictions)
	history := evolution.NewHistory(filepath.Join(cfg.HomeDir, "learning_reports.jsonl"))
	adjustmentLog := evolution.NewAdjustmentLog(filepath.Join(cfg.HomeDir, "tuneable_adjustments.jsonl"))
	strategist := evolution.NewLearningStrategist(registry, []evolution.ManagedTuneable{
		{
			Section: "promotion", Key: "reliability_min",
			Floor: registry.GetFloat("evolution", "promotion_threshold_floor"),
			Ceil:  registry.GetFloat("evolution", "promotion_threshold_ceil"),
			Step:  registry.GetFloat("evolution", "nudge_step"),
		},
	}, adjustmentLog)

	return &Bridge{
		cfg:           cfg,
		Registry:      registry,
		Queue:         q,
		Store:         store,
		Index:         index,
		Validator:     validator,
		Pipeline:      engine,
		Predictions:   loop,
		Contradiction: checker,
		Promotion:     policy,
		PromotionSink: sink,
		Reporter:      reporter,
		History:       history,
		Strategist:    strategist,
		heartbeatPath: filepath.Join(cfg.HomeDir, "bridge_worker_heartbeat.json"),
	}, nil
}

// embeddingsFor picks VoyageEmbedder (wrapped in the LRU disk cache) when
// an API key is configured, MockEmbedder otherwise — §7's "embedding
// failures degrade gracefully" only covers per-call failure, so an
// unconfigured deployment gets a deterministic local stand-in rather
// than no Embedder at all.
func embeddingsFor(cfg Config) embeddings.Embedder {
	if cfg.VoyageAPIKey == "" {
		return embeddings.NewMockEmbedder(512)
	}
	real := embeddings.NewVoyageEmbedder(cfg.VoyageAPIKey, cfg.VoyageModel)
	cache, err := embeddings.NewLRUEmbeddingCache(&embeddings.LRUCacheConfig{
		MaxEntries:    10000,
		TTL:           7 * 24 * time.Hour,
		PersistPath:   filepath.Join(cfg.HomeDir, "embedding_cache.gob.gz"),
		SaveInterval:  5 * time.Minute,
		CompressCache: true,
	})
	if err != nil {
		log.Printf("bridge: embedding cache unavailable, using uncached Voyage embedder: %v", err)
		return real
	}
	return &cachedEmbedder{real: real, cache: cache}
}

// Close releases every component holding an open file or database handle.
func (b *Bridge) Close() error {
	return b.Index.Close()
}
