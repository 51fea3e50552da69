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

	"github.com/cmlabs-hris/hris-payroll-engine/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/repository/postgresql"
	debtService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/debt"
	payrollService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/payroll"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Error("Error connecting to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := db.Migrate(ctx, cfg.Database.MigrationsDir); err != nil {
			logger.Error("Error applying migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	txManager := postgresql.NewTxManager(db)
	contractRepo := postgresql.NewContractRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	debtRepo := postgresql.NewDebtRepository(db)
	parameterRepo := postgresql.NewParameterRepository(db)
	settlementRepo := postgresql.NewSettlementRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	payrollSvc := payrollService.NewPayrollService(
		txManager,
		contractRepo,
		attendanceRepo,
		debtRepo,
		parameterRepo,
		settlementRepo,
		cfg.Payroll.Workers,
		logger,
	)
	debtSvc := debtService.NewDebtService(txManager, debtRepo, contractRepo)

	scheduler := cron.NewScheduler(logger)
	if cfg.Payroll.AutoDraftEnabled {
		cron.NewPayrollJobs(payrollSvc, logger).RegisterJobs(scheduler, cfg.Payroll.AutoDraftInterval)
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Env:            cfg.App.Env,
			Version:        cfg.App.Version,
		},
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewDebtHandler(debtSvc),
		appHTTP.NewMissionHandler(),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", slog.Any("error", err))
		}
	}()

	logger.Info("Server running", slog.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", slog.Any("error", err))
	}
}
