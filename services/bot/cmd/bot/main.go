package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"diamondbot/internal/ratelimit"
	"diamondbot/internal/servicetoken"
	"diamondbot/internal/util"
	"diamondbot/pkg/ai"
	"diamondbot/pkg/queue"
	"diamondbot/pkg/storage"
	"diamondbot/pkg/store"
	"diamondbot/services/bot/internal/app"
	"diamondbot/services/bot/internal/config"
	"diamondbot/services/bot/internal/server"
	"diamondbot/services/bot/internal/waclient"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init store", "err", err)
	}

	media, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioPublicBaseURL, cfg.MinioUseSSL)
	if err != nil {
		util.Fatal("failed to init object storage", "err", err)
	}

	channel, err := waclient.New(cfg.WhatsAppAPIBaseURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
	if err != nil {
		util.Fatal("failed to init whatsapp client", "err", err)
	}

	aiClient, err := ai.NewClient(ai.ClientConfig{
		BaseURL:    cfg.AIBaseURL,
		APIKey:     cfg.AIAPIKey,
		ChatModel:  cfg.AIChatModel,
		ImageModel: cfg.AIImageModel,
		AudioModel: cfg.AIAudioModel,
	})
	if err != nil {
		util.Fatal("failed to init ai client", "err", err)
	}

	appCore := app.New(app.Config{
		Store:          st,
		Media:          media,
		Channel:        channel,
		Fetcher:        channel,
		Classifier:     ai.NewLLMClassifier(aiClient),
		Generator:      ai.NewDesigner(aiClient),
		Extractor:      ai.NewCertificateExtractor(aiClient),
		Transcriber:    ai.NewTranscriber(aiClient),
		Assistant:      ai.NewConversationAssistant(aiClient),
		VoiceThreshold: cfg.VoiceConfidenceThreshold,
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	limiter, err := ratelimit.New(redisClient, "diamondbot:webhook",
		cfg.WebhookRateLimit, time.Duration(cfg.WebhookRateWindowSeconds)*time.Second)
	if err != nil {
		util.Fatal("failed to init rate limiter", "err", err)
	}

	var verifier *servicetoken.Verifier
	if cfg.AdminJWTPublicKeyPath != "" {
		verifier, err = servicetoken.NewVerifier("bot-admin", cfg.AdminJWTPublicKeyPath,
			cfg.AllowedIssuers(), time.Duration(cfg.AdminJWTLeewaySeconds)*time.Second)
		if err != nil {
			util.Fatal("failed to init admin token verifier", "err", err)
		}
	}

	proxies, err := util.NewTrustedProxies(cfg.TrustedProxies())
	if err != nil {
		util.Fatal("failed to parse trusted proxies", "err", err)
	}

	jobQueue, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.QueueStream,
		Group:      cfg.QueueGroup,
		MaxRetries: cfg.QueueMaxRetries,
		RetryDelay: time.Duration(cfg.QueueRetryDelaySeconds) * time.Second,
	})
	if err != nil {
		util.Fatal("failed to init job queue", "err", err)
	}

	httpServer := server.New(server.Config{
		Dispatcher:    appCore,
		Store:         st,
		Redis:         redisClient,
		Limiter:       limiter,
		TokenVerifier: verifier,
		Notifier:      jobQueue,
		VerifyToken:   cfg.WhatsAppVerifyToken,
		DedupeTTL:     time.Duration(cfg.DedupeTTLSeconds) * time.Second,
		Proxies:       proxies,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slog.Info("bot server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		jobQueue.Start(ctx, cfg.QueueConcurrency, approvalNotifier(st, channel))
		<-ctx.Done()
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

// approvalNotifier tells the seller their listing went live.
func approvalNotifier(st store.Store, channel *waclient.Client) func(context.Context, queue.JobStatus) error {
	return func(ctx context.Context, job queue.JobStatus) error {
		listing, ok, err := st.GetListing(job.ListingID)
		if err != nil {
			return fmt.Errorf("load listing %s: %w", job.ListingID, err)
		}
		if !ok {
			slog.Warn("approved listing no longer exists", "listingId", job.ListingID)
			return nil
		}
		user, ok, err := st.GetUser(listing.UserID)
		if err != nil {
			return fmt.Errorf("load listing owner %s: %w", listing.UserID, err)
		}
		if !ok {
			slog.Warn("listing owner no longer exists", "userId", listing.UserID)
			return nil
		}
		msg := "🎉 Good news! Your diamond listing has been approved and is now live."
		if err := channel.SendText(ctx, user.ChannelAddress, msg); err != nil {
			return fmt.Errorf("notify seller: %w", err)
		}
		return nil
	}
}
