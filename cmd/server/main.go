package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lokutor-ai/lokutor-orchestrator/internal/config"
	"github.com/lokutor-ai/lokutor-orchestrator/internal/obslog"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/ambient"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
	searchProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/search"
	speakerProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/speaker"
	sttProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/stt"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/session"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/worker"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("note: no .env file found, using system environment variables")
	}

	cfg := config.Load()
	obslog.Init(cfg.IsDevelopment())

	rootLogger := obslog.WithComponent("server")
	rootAdapter := obslog.NewAdapter(rootLogger)

	stt := newSTTProvider(cfg)
	llm := newLLMProvider(cfg)
	ttsSel := newTTSSelector(cfg)
	speaker := speakerProvider.NewClient(cfg.SpeakerIDEndpoint)

	var search orchestrator.SearchProvider
	if cfg.SearchEndpoint != "" {
		search = searchProvider.NewClient(cfg.SearchEndpoint, cfg.SearchAPIKey)
	}

	runner := orchestrator.NewRunner(llm, ttsSel, search, rootAdapter)

	// The ambient listener needs TranscribeDetailed's confidence signals
	// (§4.3), which only OpenAISTT reports; it always gets its own OpenAI
	// instance regardless of which provider backs the direct-audio path.
	ambientSTT := sttProvider.NewOpenAISTT(cfg.ASRAPIKey, "whisper-1")
	ambientSubmit := func(ctx context.Context, sess *session.Session, text, speaker string, wrapped bool) {
		runner.RunText(ctx, sess, text, "", wrapped)
	}
	ambientListener := ambient.NewListener(ambientSTT, speaker, ambientSubmit, rootAdapter, ambient.NewEchoGuard(cfg.AmbientEchoGuard))
	runner.SetAudioPlaybackHook(ambientListener.RecordPlayback)

	sessions := session.NewManager(cfg.DefaultWakeName)

	srv := &server{
		sessions:  sessions,
		runner:    runner,
		stt:       stt,
		ambient:   ambientListener,
		speaker:   speaker,
		ttsSel:    ttsSel,
		authToken: cfg.AuthToken,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerOrch, supervisor := newWorkerOrchestrator(cfg, obslog.WithComponent("worker"))
	if workerOrch != nil {
		srv.worker = workerOrch
		if err := supervisor.Reconcile(ctx); err != nil {
			rootLogger.Warn().Err(err).Msg("worker reconciliation failed")
		}
		go supervisor.Run(ctx)
	}

	handler := withCORS(srv.routes())

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		var err error
		if cfg.TLSEnabled() {
			rootLogger.Info().Str("addr", cfg.ListenAddr).Msg("listening (tls)")
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			rootLogger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			rootLogger.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	rootLogger.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func withCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
	})
	return c.Handler(handler)
}

// newWorkerOrchestrator wires up the meeting-bot worker orchestrator
// (§4.4) against a Docker runtime. If the daemon can't be reached the
// server still runs with worker-orchestration routes disabled, since the
// streaming pipeline (§4.1-§4.3) has no dependency on it.
func newWorkerOrchestrator(cfg *config.Config, logger zerolog.Logger) (*worker.Orchestrator, *worker.Supervisor) {
	runtime, err := worker.NewDockerRuntimeFromEnvironment()
	if err != nil {
		logger.Warn().Err(err).Msg("docker runtime unavailable, worker orchestration disabled")
		return nil, nil
	}
	adapter := obslog.NewAdapter(logger)
	orch := worker.NewOrchestrator(runtime, cfg.WorkerImage, cfg.WorkerStatusPort, cfg.MaxConcurrentWorkers, adapter)
	supervisor := worker.NewSupervisor(orch, runtime, cfg.SummaryWorkerImage, adapter)
	return orch, supervisor
}
