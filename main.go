package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"derma-inference-service/api"
	"derma-inference-service/chat"
	"derma-inference-service/config"
	"derma-inference-service/data"
	"derma-inference-service/decision"
	"derma-inference-service/model"
	"derma-inference-service/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.SetLevel(logLevel(cfg.LogLevel))

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	// Interface-typed so that a failed load leaves a true nil.
	var (
		embedder   service.Embedder
		classifier service.Classifier
		extractor  *model.ONNXExtractor
	)

	head, err := model.LoadLinearClassifier(cfg.ClassifierPath)
	if err != nil {
		modelLoadFailed(cfg, "classifier", err)
	} else {
		classifier = head
		log.Infof("Classifier loaded: %d classes %v, %d features", len(head.Classes()), head.Classes(), head.InputDim())
	}

	extractor, err = model.NewONNXExtractor(cfg.EmbeddingModelPath, model.ExtractorOptions{
		LibraryPath: cfg.OnnxRuntimeLib,
		ImageSize:   cfg.EmbeddingImageSize,
	})
	if err != nil {
		modelLoadFailed(cfg, "embedding model", err)
	} else {
		embedder = extractor
		log.Infof("Embedding model loaded: output %q, %d dimensions", extractor.OutputName(), extractor.Dim())
		if head != nil && head.InputDim() != extractor.Dim() {
			log.Warnf("Classifier expects %d features but the embedding model produces %d", head.InputDim(), extractor.Dim())
		}
	}

	inference := service.NewInferenceService(embedder, classifier, decision.New(cfg.ConfidenceThreshold))
	store := data.NewLastPredictionStore(cfg.SessionTTL)

	var remote chat.Responder
	if cfg.GeminiAPIKey != "" {
		remote = chat.NewGeminiResponder(chat.GeminiConfig{
			APIKey:          cfg.GeminiAPIKey,
			BaseURL:         cfg.GeminiBaseURL,
			Model:           cfg.GeminiModel,
			Timeout:         cfg.GeminiTimeout,
			MaxOutputTokens: cfg.GeminiMaxOutputTokens,
		})
		log.Infof("Chat backend: %s (%s)", remote.Name(), cfg.GeminiModel)
	} else {
		log.Info("GEMINI_API_KEY not set, chat uses the local responder only")
	}
	assistant := chat.NewAssistant(remote, chat.NewLocalResponder(nil), cfg.ClassNames, chat.BreakerSettings{
		Failures: cfg.BreakerFailures,
		Cooldown: cfg.BreakerCooldown,
	})

	restServer := api.NewRESTServer(api.Dependencies{
		Predictor: inference,
		Store:     store,
		Assistant: assistant,
		Classes:   cfg.ClassNames,
		Upload: api.UploadOptions{
			Dir:        cfg.UploadDir,
			MaxBytes:   cfg.MaxUploadBytes,
			SessionTTL: cfg.SessionTTL,
		},
		StaticDir: cfg.StaticDir,
		AccessLog: !cfg.IsProduction(),
	})

	health := api.NewHealthServer(inference)
	grpcServer := api.NewGRPCServer(health)

	if cfg.GRPCAddr != "" {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				log.Fatalf("Failed to listen: %v", err)
			}
			log.Infof("Starting gRPC server on %s", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				log.Fatalf("Failed to serve gRPC: %v", err)
			}
		}()
	}

	go func() {
		log.Infof("Starting Fiber server on %s", cfg.RESTAddr)
		if err := restServer.Listen(cfg.RESTAddr); err != nil {
			log.Fatalf("Failed to serve Fiber: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := restServer.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("Fiber shutdown: %v", err)
	}
	health.Shutdown()
	grpcServer.GracefulStop()

	if extractor != nil {
		if err := extractor.Close(); err != nil {
			log.Errorf("Failed to release embedding model: %v", err)
		}
	}
}

// modelLoadFailed stops the process in production. Elsewhere the server
// keeps running and reports the model as not loaded.
func modelLoadFailed(cfg *config.Config, what string, err error) {
	if cfg.IsProduction() {
		log.Fatalf("Failed to load %s: %v", what, err)
	}
	log.Errorf("Failed to load %s: %v", what, err)
}

func logLevel(name string) log.Level {
	switch strings.ToLower(name) {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn", "warning":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
