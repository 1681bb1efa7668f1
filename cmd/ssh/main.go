package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"daily-bias-engine/internal/advisor"
	"daily-bias-engine/internal/cache"
	"daily-bias-engine/internal/config"
	"daily-bias-engine/internal/db"
	"daily-bias-engine/internal/decay"
	"daily-bias-engine/internal/intraday"
	"daily-bias-engine/internal/levels"
	"daily-bias-engine/internal/provider"
	"daily-bias-engine/internal/repository"
	"daily-bias-engine/internal/scoring"
	"daily-bias-engine/internal/service"
	"daily-bias-engine/internal/session"
	"daily-bias-engine/internal/tui"
	"daily-bias-engine/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"
)

// ctxKey is a typed context key to avoid collisions.
type ctxKey string

const sshUserKey ctxKey = "ssh_user"

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer

	newBarRepoFunc          = repository.NewBarRepository
	newPredictionRepoFunc   = repository.NewPredictionRepository
	newSSHUserRepoFunc      = repository.NewSSHUserRepository
	newConversationRepoFunc = repository.NewConversationRepository

	newProviderFunc = func(baseURL, apiKey string, tracer trace.Tracer) service.BarProvider {
		return provider.NewMarketDataProvider(baseURL, apiKey, tracer)
	}
	newMarketServiceFunc   = service.NewMarketDataService
	newForecastServiceFunc = service.NewForecastService
	newOpenAIClientFunc    = advisor.NewOpenAIClient
	newAdvisorServiceFunc  = advisor.NewAdvisorService

	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	resolver, err := session.NewResolver()
	if err != nil {
		log.Fatalf("failed to load venue timezones: %v", err)
	}
	scorer, err := scoring.NewScorer(scoring.DefaultWeights())
	if err != nil {
		log.Fatalf("invalid weight table: %v", err)
	}
	calculator := levels.NewCalculator(resolver)
	decayModel := decay.NewModel(cfg.DecayMaxHoursBefore, cfg.DecayMinFactor)
	evaluator := intraday.NewEvaluator(resolver, decayModel)

	// Without Postgres the services get nil stores (they degrade to
	// cache-only reads) and public-key auth denies everyone, since there is
	// no ssh_users table to check fingerprints against.
	var (
		barRepo        service.BarRepository
		predictionRepo service.PredictionStore
		convStore      advisor.ConversationStore
		sshUserRepo    *repository.SSHUserRepository
	)
	if db.Pool != nil {
		barRepo = newBarRepoFunc(db.Pool, tracer)
		predictionRepo = newPredictionRepoFunc(db.Pool, tracer)
		sshUserRepo = newSSHUserRepoFunc(db.Pool, tracer)
		convStore = newConversationRepoFunc(db.Pool, tracer)
	} else {
		log.Println("Warning: no Postgres pool, SSH logins will be rejected")
	}

	mdProvider := newProviderFunc(cfg.MarketDataBaseURL, cfg.MarketDataAPIKey, tracer)
	marketSvc := newMarketServiceFunc(tracer, mdProvider, barRepo, resolver, cache.Client)
	forecastSvc := newForecastServiceFunc(
		tracer, marketSvc, predictionRepo,
		calculator, scorer, evaluator, resolver,
		cache.Client, time.Duration(cfg.ForecastCacheSecs)*time.Second,
	)

	// Advisor (optional)
	var advisorSvc *advisor.AdvisorService
	if cfg.OpenAIAPIKey != "" {
		llmClient := newOpenAIClientFunc(cfg.OpenAIAPIKey)
		advisorSvc = newAdvisorServiceFunc(tracer, llmClient, forecastSvc,
			convStore, cfg.OpenAIModel, cfg.AdvisorMaxHistory)
		log.Println("SSH advisor service enabled")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			if sshUserRepo == nil {
				return false
			}
			fingerprint := gossh.FingerprintSHA256(key)
			user, err := sshUserRepo.FindByFingerprint(context.Background(), fingerprint)
			if err != nil || user == nil {
				log.Printf("SSH auth denied: fingerprint=%s err=%v", fingerprint, err)
				return false
			}
			ctx.SetValue(sshUserKey, user)
			_ = sshUserRepo.UpdateLastLogin(context.Background(), user.ID)
			log.Printf("SSH auth accepted: user=%s fingerprint=%s", user.Username, fingerprint)
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				user, _ := s.Context().Value(sshUserKey).(*repository.SSHUser)

				username := "unknown"
				var userID int64
				if user != nil {
					username = user.Username
					userID = user.ID
				}

				var advisorQ tui.AdvisorQuerier
				if advisorSvc != nil {
					advisorQ = advisorSvc
				}

				svc := tui.Services{
					Forecasts: forecastSvc,
					Advisor:   advisorQ,
					UserID:    userID,
					Username:  username,
				}

				model := tui.NewAppModel(svc)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}
