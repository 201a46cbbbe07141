package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/maiway/commerce-ai-platform/internal/ai"
	"github.com/maiway/commerce-ai-platform/internal/api/router"
	"github.com/maiway/commerce-ai-platform/internal/assistant"
	"github.com/maiway/commerce-ai-platform/internal/cartrecovery"
	appconfig "github.com/maiway/commerce-ai-platform/internal/config"
	"github.com/maiway/commerce-ai-platform/internal/churn"
	"github.com/maiway/commerce-ai-platform/internal/events"
	"github.com/maiway/commerce-ai-platform/internal/notify"
	"github.com/maiway/commerce-ai-platform/internal/observability/metrics"
	"github.com/maiway/commerce-ai-platform/internal/orders"
	"github.com/maiway/commerce-ai-platform/internal/pricing"
	"github.com/maiway/commerce-ai-platform/internal/products"
	"github.com/maiway/commerce-ai-platform/internal/ratelimit"
	"github.com/maiway/commerce-ai-platform/internal/users"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting commerce-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = redisClient.Close() }()

	automationMetrics := metrics.NewAutomationMetrics(nil)

	// Workflow engine webhook publisher and the callback registry.
	publisher := events.NewPublisher(events.PublisherConfig{
		BaseURL: cfg.WorkflowWebhookBaseURL,
		Timeout: cfg.WorkflowWebhookTimeout,
		Logger:  logger,
		Metrics: automationMetrics,
	})

	llmClient, err := buildLLMClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to build LLM client", "provider", cfg.AIProvider, "error", err)
		os.Exit(1)
	}
	gateway := ai.NewGateway(llmClient, logger)

	emailSender := buildEmailSender(ctx, cfg, logger)

	// Repositories.
	userRepo := users.NewRepository(pool)
	orderRepo := orders.NewRepository(pool)
	productRepo := products.NewRepository(pool)
	cartRepo := cartrecovery.NewRepository(pool)

	// Automation engines.
	churnEngine := churn.NewEngine(churn.EngineConfig{
		Users:     userRepo,
		Orders:    orderRepo,
		Analyzer:  gateway,
		Publisher: publisher,
		Tiers: churn.Tiers{
			High:   cfg.ChurnHighRisk,
			Medium: cfg.ChurnMediumRisk,
			Low:    cfg.ChurnLowRisk,
		},
		Logger:  logger,
		Metrics: automationMetrics,
	})
	cartEngine := cartrecovery.NewEngine(cartrecovery.EngineConfig{
		Users:     userRepo,
		Carts:     cartRepo,
		Views:     productRepo,
		Analyzer:  gateway,
		Email:     emailSender,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   automationMetrics,
	})
	pricingEngine := pricing.NewEngine(pricing.EngineConfig{
		Demand:     pricing.NewOrderVolumeDemand(pool),
		Store:      productRepo,
		Analyzer:   gateway,
		FloorRatio: cfg.MinPriceFloorRatio,
		Logger:     logger,
		Metrics:    automationMetrics,
	})

	registry := events.NewRegistry(logger)
	registry.Register(events.CartCreated, cartEngine.CartCreatedHandler())
	registry.Register(events.LowEngagement, churnEngine.RetentionOfferHandler())
	hookHandler := events.NewHookHandler(registry, logger)

	// Chat assistant.
	library := assistant.NewLibrary(assistant.LibraryConfig{
		BlueprintDir: filepath.Join(cfg.AssistantDataDir, "blueprints"),
		DocDir:       filepath.Join(cfg.AssistantDataDir, "docs"),
		CourseDir:    filepath.Join(cfg.AssistantDataDir, "courses"),
		Logger:       logger,
	})
	manager := assistant.NewManager(assistant.ManagerConfig{
		Gateway:      gateway,
		Store:        buildHistoryStore(cfg, redisClient, logger),
		Library:      library,
		SystemPrompt: loadPersona(cfg, logger),
		Logger:       logger,
	})
	chatHandler := assistant.NewHandler(manager, logger)

	orderService := orders.NewService(orderRepo, publisher, logger)
	ordersHandler := orders.NewHandler(orderService, orderRepo, logger)

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.Config{
		Limit:  cfg.ChatRateLimit,
		Window: cfg.ChatRateWindow,
		Logger: logger,
	})

	r := router.New(&router.Config{
		Logger:         logger,
		ChatHandler:    chatHandler,
		OrdersHandler:  ordersHandler,
		HookHandler:    hookHandler,
		ChurnEngine:    churnEngine,
		PricingEngine:  pricingEngine,
		RateLimiter:    limiter,
		JWTSecret:      cfg.JWTSecret,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // AI calls dominate request latency
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMClient selects the AI backend once at startup.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config) (ai.LLMClient, error) {
	switch cfg.AIProvider {
	case "groq":
		return ai.NewGroqClient(ai.OpenAICompatConfig{
			BaseURL:     cfg.GroqBaseURL,
			APIKey:      cfg.GroqAPIKey,
			Model:       cfg.GroqModel,
			Temperature: cfg.AITemperature,
			MaxTokens:   cfg.AIMaxTokens,
		})
	case "gemini":
		return ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.AITemperature,
			MaxTokens:   cfg.AIMaxTokens,
		})
	default:
		return ai.NewOllamaClient(ai.OpenAICompatConfig{
			BaseURL:       cfg.OllamaBaseURL,
			Model:         cfg.OllamaModel,
			Temperature:   cfg.AITemperature,
			ContextWindow: cfg.AIContextWindow,
		}), nil
	}
}

// buildEmailSender selects the delivery provider; anything unconfigured
// falls back to the logging stub so automation keeps working in dev.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) cartrecovery.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("sendgrid not configured, using stub email sender")
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("failed to load AWS config, using stub email sender", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}

func buildHistoryStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) assistant.HistoryStore {
	if cfg.ChatHistoryStore == "redis" {
		return assistant.NewRedisHistoryStore(redisClient, logger)
	}
	return assistant.NewFileHistoryStore(cfg.ChatMemoryPath, logger)
}

// loadPersona reads the assistant persona text; a missing file means the
// built-in default.
func loadPersona(cfg *appconfig.Config, logger *logging.Logger) string {
	path := filepath.Join(cfg.AssistantDataDir, "persona.txt")
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Info("no persona file, using default system prompt", "path", path)
		return ""
	}
	return strings.TrimSpace(string(raw))
}
