package main

import (
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prompteval-server/internal/config"
	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/domain/eval"
	"prompteval-server/internal/domain/model"
	"prompteval-server/internal/infrastructure/auth"
	"prompteval-server/internal/infrastructure/inference"
	"prompteval-server/internal/infrastructure/keystore"
	"prompteval-server/internal/infrastructure/logger"
	"prompteval-server/internal/interfaces/httpserver"
	"prompteval-server/internal/interfaces/httpserver/handlers/evalhandler"
	v1 "prompteval-server/internal/interfaces/httpserver/routes/v1"
	"prompteval-server/internal/utils/httpclients"
)

type Application struct {
	httpServer  *httpserver.HTTPServer
	metricsPort int
}

// @title Prompt Evaluation API
// @version 1.0
// @description Quantitative prompt evaluation and enhancement over multiple model providers.
// @BasePath /
func (application *Application) Start() {
	var eg errgroup.Group
	eg.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		return http.ListenAndServe(fmt.Sprintf(":%d", application.metricsPort), mux)
	})
	eg.Go(func() error {
		return application.httpServer.Run()
	})

	if err := eg.Wait(); err != nil {
		panic(err)
	}
}

func buildApplication(cfg *config.Config) (*Application, error) {
	catalog := model.DefaultCatalog()
	if cfg.ModelCatalogFile != "" {
		loaded, err := model.LoadCatalogFile(cfg.ModelCatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load model catalog: %w", err)
		}
		catalog = loaded
	}

	var store credential.Store
	if cfg.KeystoreSecret != "" {
		store = keystore.New(cfg.KeystoreSecret)
	}
	resolver := credential.NewResolver(store, map[model.ProviderKind]string{
		model.ProviderOpenAI:    cfg.OpenAIAPIKey,
		model.ProviderAnthropic: cfg.AnthropicAPIKey,
		model.ProviderGoogle:    cfg.GoogleAPIKey,
	})

	dispatcher := inference.NewDispatcher(catalog, resolver, []inference.Adapter{
		inference.NewOpenAIAdapter(httpclients.NewClient("openai"), cfg.OpenAIBaseURL),
		inference.NewAnthropicAdapter(httpclients.NewClient("anthropic"), cfg.AnthropicBaseURL),
		inference.NewGoogleAdapter(httpclients.NewClient("google"), cfg.GoogleBaseURL),
	}, cfg.RequestTimeout)

	generator := eval.NewGenerator(dispatcher)
	scorer := eval.NewScorer(dispatcher, model.ID(cfg.EvaluatorModel))
	evaluator := eval.NewEvaluator(dispatcher, generator, scorer, cfg.EvalConcurrency)
	enhancer := eval.NewEnhancer(dispatcher, evaluator)

	handler := evalhandler.NewEvalHandler(evaluator, enhancer, catalog,
		model.ID(cfg.DefaultModel), cfg.MaxSyntheticCases)

	server := httpserver.NewHttpServer(v1.NewV1Route(handler), auth.AnonymousVerifier{}, cfg)

	return &Application{httpServer: server, metricsPort: cfg.MetricsPort}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	application, err := buildApplication(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create application")
	}

	log.Info().
		Str("service", cfg.ServiceName).
		Str("version", config.Version).
		Int("http_port", cfg.HTTPPort).
		Int("metrics_port", cfg.MetricsPort).
		Msg("starting server")

	application.Start()
}
