package handlers

import (
	"fmt"
	"path/filepath"
	"time"

	"tidings/internal/config"
	"tidings/internal/core"
	"tidings/internal/enrich"
	"tidings/internal/extract"
	"tidings/internal/legal"
	"tidings/internal/llm"
	"tidings/internal/logger"
	"tidings/internal/newsfeed"
	"tidings/internal/orchestrator"
	"tidings/internal/rank"
	"tidings/internal/relevance"
	"tidings/internal/safeurl"
	"tidings/internal/search"
	"tidings/internal/topics"
	"tidings/internal/trend"
	"tidings/internal/videofeed"
)

// app holds the wired service graph for one command invocation. Everything is
// constructed here so commands stay declarative.
type app struct {
	cfg    *config.Config
	topics *topics.Manager

	orchestrator *orchestrator.Orchestrator
	newsWorker   *newsfeed.Worker
	videoWorker  *videofeed.Worker
	extractor    *extract.Extractor

	// llm is nil when no API key is configured; LLM-backed commands must
	// check and fail with a clear message.
	llm *llm.Client
}

// newApp loads config and wires the service graph.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := cfg.App.DataDir
	tm, err := topics.NewManager(filepath.Join(dataDir, cfg.Topics.File))
	if err != nil {
		return nil, fmt.Errorf("failed to open topic state: %w", err)
	}

	newsStore, err := newsfeed.NewStore(dataDir, cfg.Feeds.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open news store: %w", err)
	}
	newsWorker := newsfeed.NewWorker(newsStore, tm, newsfeed.NewImageSearcher())
	if d, err := time.ParseDuration(cfg.Feeds.RefreshInterval); err == nil {
		newsWorker.SetInterval(d)
	}

	videoStore, err := videofeed.NewStore(dataDir, cfg.Videos.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open video store: %w", err)
	}

	llmClient, err := llm.NewClient("", "")
	if err != nil {
		logger.Warn("LLM unavailable, running degraded", "error", err.Error())
		llmClient = nil
	}

	var translator videofeed.Translator
	if llmClient != nil {
		translator = llmClient
	}
	videoWorker := videofeed.NewWorker(videoStore, tm, nil, translator)
	if d, err := time.ParseDuration(cfg.Videos.RefreshInterval); err == nil {
		videoWorker.SetInterval(d)
	}

	orch := orchestrator.New(
		tm,
		relevance.NewFilter(core.PinnedTokens),
		rank.NewRanker(nil),
		enrich.NewEnricher(),
		nil,
	)

	extractor := extract.NewExtractor(safeurl.NewResolver(), search.NewNewsRSSProvider())

	return &app{
		cfg:          cfg,
		topics:       tm,
		orchestrator: orch,
		newsWorker:   newsWorker,
		videoWorker:  videoWorker,
		extractor:    extractor,
		llm:          llmClient,
	}, nil
}

// legalAssistant wires the legal research assistant. Requires the LLM.
func (a *app) legalAssistant() (*legal.Assistant, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("legal assistant requires an LLM: set GEMINI_API_KEY")
	}
	return legal.NewAssistant(search.NewDuckDuckGoProvider(), a.llm, a.llm, a.topics), nil
}

// trendMiner wires the trend miner. Requires the LLM for numeric extraction.
func (a *app) trendMiner() (*trend.Miner, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("trend analysis requires an LLM: set GEMINI_API_KEY")
	}
	snapshot := filepath.Join(a.cfg.App.DataDir, a.cfg.Analytics.SnapshotFile)
	return trend.NewMiner(search.NewDuckDuckGoProvider(), a.llm, snapshot), nil
}
