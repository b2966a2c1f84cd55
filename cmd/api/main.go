package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArowuTest/raffle-backend/api/routes"
	"github.com/ArowuTest/raffle-backend/internal/config"
	"github.com/ArowuTest/raffle-backend/internal/currency"
	"github.com/ArowuTest/raffle-backend/internal/handlers"
	"github.com/ArowuTest/raffle-backend/internal/metrics"
	"github.com/ArowuTest/raffle-backend/internal/middleware"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/ArowuTest/raffle-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/raffle-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/ArowuTest/raffle-backend/pkg/cloudinary"
	"github.com/ArowuTest/raffle-backend/pkg/jwt"
	"github.com/ArowuTest/raffle-backend/pkg/logger"
	mongodb "github.com/ArowuTest/raffle-backend/pkg/mongodb"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// store bundles the repositories of one storage driver
type store struct {
	raffles    repositories.RaffleRepository
	tickets    repositories.TicketRepository
	winners    repositories.WinnerRepository
	admins     repositories.AdminUserRepository
	configs    repositories.SystemConfigRepository
	transactor repositories.Transactor
	close      func(ctx context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			zlog.Error("closing store", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	book, err := currency.NewRateBook(decimal.NewFromFloat(cfg.Currency.RateUSDToLocal))
	if err != nil {
		return fmt.Errorf("initial exchange rate: %w", err)
	}
	localCode := currency.ParseCode(cfg.Currency.LocalCode)
	engine, err := currency.NewEngine(book, localCode, cfg.Currency.LocalSymbol, cfg.Currency.Locale)
	if err != nil {
		return err
	}
	methods := make(map[string]currency.Code, len(cfg.Payments.Methods))
	for method, code := range cfg.Payments.Methods {
		methods[strings.ToLower(method)] = currency.ParseCode(code)
	}

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpiresIn)
	if err != nil {
		return err
	}
	proofs, err := cloudinary.NewProofStore(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
	if err != nil {
		return err
	}

	// Services
	raffleService := services.NewRaffleService(st.raffles, st.tickets, st.winners, zlog)
	purchaseService := services.NewPurchaseService(st.raffles, st.tickets, engine, services.PurchaseOptions{
		PaymentMethods: methods,
		MaxPerPurchase: cfg.Tickets.MaxPerPurchase,
	}, m, zlog)
	reviewService := services.NewReviewService(st.raffles, st.tickets, m, zlog)
	winnerService := services.NewWinnerService(st.raffles, st.tickets, st.winners, st.transactor, zlog)
	rateService := services.NewExchangeRateService(st.configs, book, m, zlog)
	authService := services.NewAuthService(st.admins, tokens, zlog)

	if err := rateService.Reload(ctx); err != nil {
		zlog.Warn("stored exchange rate ignored", zap.Error(err))
	}
	if err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	scheduler, err := services.NewScheduler(rateService, reviewService, services.SchedulerOptions{
		RateRefreshCron: cfg.Currency.RateRefreshCron,
		ExpiryCron:      cfg.Tickets.ExpiryCron,
		PendingExpiry:   cfg.Tickets.PendingExpiry,
	}, zlog)
	if err != nil {
		return err
	}
	scheduler.Start()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PurchasesPerMinute, cfg.RateLimit.Burst, zlog)
	limiter.StartCleanup(ctx, 5*time.Minute)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:           handlers.NewAuthHandler(authService),
		RaffleHandler:         handlers.NewRaffleHandler(raffleService, purchaseService),
		TicketHandler:         handlers.NewTicketHandler(purchaseService, reviewService),
		WinnerHandler:         handlers.NewWinnerHandler(winnerService),
		SystemSettingsHandler: handlers.NewSystemSettingsHandler(rateService, localCode),
		ProofHandler:          handlers.NewProofHandler(proofs, zlog),
	}, routes.RouterDependencies{
		Tokens:      tokens,
		RateLimiter: limiter,
		Gatherer:    registry,
		Logger:      zlog,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zlog.Info("server exited")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*store, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		zlog.Warn("using in-memory storage, data is lost on restart")
		mem := memory.NewStore()
		return &store{
			raffles:    mem.Raffles(),
			tickets:    mem.Tickets(),
			winners:    mem.Winners(),
			admins:     mem.AdminUsers(),
			configs:    mem.SystemConfig(),
			transactor: mem.Transactor(),
			close:      func(context.Context) error { return nil },
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	client, err := mongodb.NewClient(connectCtx, cfg.MongoDB.URI)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	zlog.Info("connected to MongoDB",
		zap.String("database", cfg.MongoDB.Database),
		zap.Bool("transactions", cfg.MongoDB.UseTransactions))

	return &store{
		raffles:    mongorepo.NewRaffleRepository(db),
		tickets:    mongorepo.NewTicketRepository(db, cfg.MongoDB.UseTransactions),
		winners:    mongorepo.NewWinnerRepository(db),
		admins:     mongorepo.NewAdminUserRepository(db),
		configs:    mongorepo.NewSystemConfigRepository(db),
		transactor: mongorepo.NewTransactor(client.Raw(), cfg.MongoDB.UseTransactions),
		close:      client.Disconnect,
	}, nil
}
