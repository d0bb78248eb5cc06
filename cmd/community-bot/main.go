package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"community-bot/internal/common/aws"
	"community-bot/internal/common/camunda"
	"community-bot/internal/common/config"
	"community-bot/internal/common/database"
	"community-bot/internal/common/discord"
	httpclient "community-bot/internal/common/http"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/observability"
	"community-bot/internal/common/wordpress"
	"community-bot/internal/httpapi"
	"community-bot/internal/membership"
	"community-bot/pkg/registry"

	presencesync "community-bot/internal/workers/discord/presence-sync"
	usernamesync "community-bot/internal/workers/discord/username-sync"
	verifyprompt "community-bot/internal/workers/discord/verify-prompt"
	verifysubscription "community-bot/internal/workers/discord/verify-subscription"
	syncmembership "community-bot/internal/workers/storefront/sync-membership"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting community bot",
		zap.String("environment", cfg.App.Environment),
		zap.String("guildId", cfg.Discord.GuildID),
	)

	obs := observability.New(cfg.App.Name, cfg.App.Version)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := membership.NewPolicy(cfg.Membership.SKURoles, cfg.Membership.SpecialRoleIDs)
	if err != nil {
		zapLog.Fatal("invalid role mapping", zap.Error(err))
	}
	zapLog.Info("Role mapping loaded", zap.Strings("skus", policy.SKUs()))

	store := wordpress.NewClient(cfg.WordPress.APIHost, cfg.WordPress.BearerToken, config.GetDuration(cfg.WordPress.Timeout),
		httpclient.WithHeader("User-Agent", cfg.App.Name+"/"+cfg.App.Version),
	)

	session, err := discord.NewSession(cfg.Discord.BotToken)
	if err != nil {
		zapLog.Fatal("discord session failed", zap.Error(err))
	}
	guild := discord.NewGuild(session)
	reconciler := membership.NewReconciler(policy, guild, log)
	linker := membership.NewLinker(store, log)

	checks := map[string]httpapi.ReadinessCheck{
		"discord": func(ctx context.Context) error {
			if session.State == nil || session.State.User == nil {
				return errors.New("gateway not ready")
			}
			return nil
		},
	}

	// --- Pending-link ledger ---
	var pending membership.PendingLinks = membership.LogPendingLinks{Logger: log}
	if cfg.Database.Redis.Address != "" {
		rc := database.NewRedis(cfg.Database.Redis)
		if err := rc.Ping(ctx); err != nil {
			zapLog.Fatal("redis unreachable", zap.Error(err))
		}
		defer rc.Close()
		pending = database.NewPendingLinkStore(rc)
		checks["redis"] = rc.Ping
		zapLog.Info("Redis connected successfully")
	}

	// --- Operator notifications ---
	notifier := buildNotifier(ctx, cfg, zapLog)

	// --- Discord handlers ---
	presenceHandler, err := presencesync.NewHandler(presencesync.ServiceDependencies{
		Store:         store,
		Directory:     guild,
		Reconciler:    reconciler,
		Linker:        linker,
		Observability: obs,
		Logger:        log,
	}, presencesync.LoadConfig(cfg))
	if err != nil {
		zapLog.Fatal("presence handler", zap.Error(err))
	}

	usernameHandler, err := usernamesync.NewHandler(usernamesync.ServiceDependencies{
		Store:      store,
		Reconciler: reconciler,
		Linker:     linker,
		Logger:     log,
	}, usernamesync.LoadConfig(cfg))
	if err != nil {
		zapLog.Fatal("username handler", zap.Error(err))
	}

	verifyHandler, err := verifysubscription.NewHandler(verifysubscription.ServiceDependencies{
		Store:         store,
		Reconciler:    reconciler,
		Linker:        linker,
		Pending:       pending,
		Notifier:      notifier,
		Observability: obs,
		Logger:        log,
	}, verifysubscription.LoadConfig(cfg))
	if err != nil {
		zapLog.Fatal("verify handler", zap.Error(err))
	}

	promptHandler, err := verifyprompt.NewHandler(verifyprompt.LoadConfig(cfg), log)
	if err != nil {
		zapLog.Fatal("prompt handler", zap.Error(err))
	}

	router := discord.NewRouter(log)
	promptHandler.Register(router)
	router.Modal(registry.SubscriptionKeyModalID, verifyHandler.Handle)

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		zapLog.Info("Logged in", zap.String("tag", discord.Tag(r.User)), zap.Int("guilds", len(r.Guilds)))
	})
	session.AddHandler(presenceHandler.Handle)
	session.AddHandler(usernameHandler.Handle)
	session.AddHandler(router.Handle)

	if err := session.Open(); err != nil {
		zapLog.Fatal("discord gateway connection failed", zap.Error(err))
	}
	defer session.Close()

	// --- Sync service: HTTP and Zeebe ---
	syncCfg := syncmembership.LoadConfig(cfg)
	syncService := syncmembership.NewService(syncmembership.ServiceDependencies{
		Store:         store,
		Directory:     guild,
		Reconciler:    reconciler,
		Observability: obs,
		Logger:        log,
	}, syncCfg)

	var jobWorker *camunda.Worker
	if cfg.Camunda.Enabled {
		zc, err := camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zc.Close()
		checks["zeebe"] = zc.HealthCheck

		handler, err := syncmembership.NewHandler(syncmembership.HandlerOptions{
			Config:  syncCfg,
			Service: syncService,
			Logger:  log,
		})
		if err != nil {
			zapLog.Fatal("sync job handler", zap.Error(err))
		}
		jobWorker = camunda.StartWorker(zc.GetClient(), syncmembership.TaskType,
			config.GetWorkerConfig(cfg, syncmembership.WorkerName), handler, zapLog)
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpapi.NewRouter(httpapi.Options{
			Sync:           syncService,
			Pending:        pending,
			Checks:         checks,
			RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
			BasicAuth:      cfg.Server.BasicAuth,
			AppName:        cfg.App.Name,
			Version:        cfg.App.Version,
			Logger:         log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutting down")

	jobWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP shutdown failed", zap.Error(err))
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) membership.Notifier {
	awsCfg := cfg.Integrations.AWS
	var notifiers aws.MultiNotifier

	if awsCfg.SNS.Enabled {
		n, err := aws.NewSNSNotifier(ctx, awsCfg.Region, awsCfg.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns notifier", zap.Error(err))
		}
		notifiers = append(notifiers, n)
	}
	if awsCfg.SES.Enabled {
		n, err := aws.NewSESNotifier(ctx, awsCfg.Region, awsCfg.SES.FromEmail, awsCfg.SES.ToEmails)
		if err != nil {
			zapLog.Fatal("ses notifier", zap.Error(err))
		}
		notifiers = append(notifiers, n)
	}

	if len(notifiers) == 0 {
		zapLog.Info("Operator notifications disabled")
		return membership.NopNotifier{}
	}
	zapLog.Info("Operator notifications enabled", zap.Int("channels", len(notifiers)))
	return notifiers
}
