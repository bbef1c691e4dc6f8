// Command selfplay runs the MCTS self-play driver against a configured
// neural.Evaluator, serving live progress over HTTP while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samuelbarrett1234/40KLearn/internal/applog"
	"github.com/samuelbarrett1234/40KLearn/internal/config"
	"github.com/samuelbarrett1234/40KLearn/internal/httpapi"
	"github.com/samuelbarrett1234/40KLearn/internal/httpapi/live"
	"github.com/samuelbarrett1234/40KLearn/pkg/game"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural/grpcevaluator"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural/mockevaluator"
	"github.com/samuelbarrett1234/40KLearn/pkg/neural/onnxevaluator"
	"github.com/samuelbarrett1234/40KLearn/pkg/selfplay"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults built in if omitted)")
	addr := flag.String("addr", "", "override http.address from config")
	evaluatorKind := flag.String("evaluator", "", "override evaluator.kind from config (mock, grpc, onnx)")
	grpcAddr := flag.String("grpc-addr", "", "override evaluator.grpcAddress from config")
	flag.Parse()

	applog.Init()
	log := applog.Get()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.FromYaml(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.HTTP.Address = *addr
	}
	if *evaluatorKind != "" {
		cfg.Evaluator.Kind = *evaluatorKind
	}
	if *grpcAddr != "" {
		cfg.Evaluator.GRPCAddress = *grpcAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	evaluator, closeEvaluator, err := buildEvaluator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build evaluator")
	}
	if closeEvaluator != nil {
		defer closeEvaluator()
	}

	manager, err := selfplay.New(
		cfg.MCTS.ExplorationConstant,
		cfg.MCTS.Temperature,
		cfg.MCTS.NumSimulations,
		cfg.MCTS.Workers,
		cfg.MCTS.Seed,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct self-play manager")
	}

	hub := live.NewHub(log)
	runner := httpapi.NewRunner(manager, evaluator, hub, log, cfg.SelfPlay.ConcurrentGames, func() (game.GameState, error) {
		return buildInitialState(cfg)
	})
	server := httpapi.NewServer(manager, runner, hub, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Address).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return runner.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("selfplay exited with error")
		os.Exit(1)
	}
}

func buildEvaluator(cfg config.Config) (neural.Evaluator, func(), error) {
	switch cfg.Evaluator.Kind {
	case "mock":
		return mockevaluator.New(), nil, nil
	case "grpc":
		ev, err := grpcevaluator.Dial(cfg.Evaluator.GRPCAddress, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		return ev, func() { _ = ev.Close() }, nil
	case "onnx":
		ev, err := onnxevaluator.New(
			cfg.Evaluator.ONNXSharedLibraryPath,
			cfg.Evaluator.ONNXModelPath,
			cfg.Evaluator.ONNXInputName,
			cfg.Evaluator.ONNXValueOutputName,
			cfg.Evaluator.ONNXPolicyOutputName,
			boardFeatureSize(cfg),
			cfg.Evaluator.ONNXPolicySize,
		)
		if err != nil {
			return nil, nil, err
		}
		return ev, func() { _ = ev.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown evaluator kind %q", cfg.Evaluator.Kind)
	}
}

func boardFeatureSize(cfg config.Config) int {
	return cfg.Board.Size*cfg.Board.Size*2 + 2
}
