package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sukryu/gqpanel/internal/config"
	"github.com/sukryu/gqpanel/internal/logging"
	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/apis/router"
	"github.com/sukryu/gqpanel/pkg/audit"
	"github.com/sukryu/gqpanel/pkg/controllers"
	"github.com/sukryu/gqpanel/pkg/store/dynamic/gormstore"
	"github.com/sukryu/gqpanel/pkg/store/manager"
	"github.com/sukryu/gqpanel/pkg/store/schema"
	"github.com/sukryu/gqpanel/pkg/utils/jwt"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gqpanel",
		Short:         "GreenQuality admin and manager panel backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	return cmd
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *manager.Manager
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	opts := manager.Options{
		Driver:          cfg.Database.Driver,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	if schema.Dialect(cfg.Database.Driver) == schema.DialectPostgres {
		opts.DSN = cfg.PostgresDSN()
	} else {
		opts.DSN = cfg.SQLitePath()
	}

	m, err := manager.Open(ctx, opts, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, manager: m}, nil
}

func (a *app) close() {
	if err := a.manager.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) migrate(ctx context.Context) error {
	if err := a.manager.Initialize(ctx, schema.Airline(), schema.Coral()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.logger.Info("schema up to date", zap.String("driver", a.cfg.Database.Driver))
	return nil
}

func (a *app) seed(ctx context.Context) error {
	err := a.manager.Seed(ctx, schema.Airline(), manager.SeedOptions{
		AdminEmail:    a.cfg.Seed.AdminEmail,
		AdminPassword: a.cfg.Seed.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	a.logger.Info("lookup data seeded")
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing catalog tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.migrate(ctx)
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create tables and insert lookup rows and the bootstrap admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.migrate(ctx); err != nil {
				return err
			}
			return a.seed(ctx)
		},
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.Database.AutoMigrate {
		if err := a.migrate(ctx); err != nil {
			return err
		}
		if err := a.seed(ctx); err != nil {
			return err
		}
	}

	db := a.manager.GetDB()
	store, err := gormstore.NewGormDynamicStore(db, a.logger)
	if err != nil {
		return err
	}
	recorder := audit.NewRecorder(db, schema.Airline(), a.logger)
	rbac := controllers.NewRBACController()

	backups := controllers.NewBackupController(controllers.BackupOptions{
		BinDir:         a.cfg.Tools.BinDir,
		DumpTimeout:    a.cfg.Tools.DumpTimeout,
		RestoreTimeout: a.cfg.Tools.RestoreTimeout,
		Host:           a.cfg.Database.Host,
		Port:           a.cfg.Database.Port,
		User:           a.cfg.Database.User,
		Password:       a.cfg.Database.Password,
		Database:       a.cfg.Database.Name,
	}, a.logger)

	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewRouter(router.Deps{
		Auth:    controllers.NewAuthController(store, rbac),
		Airline: controllers.NewCRUDController(v1alpha1.GroupAirline, schema.Airline(), store, recorder, rbac, a.logger),
		Store:   controllers.NewCRUDController(v1alpha1.GroupStore, schema.Coral(), store, recorder, rbac, a.logger),
		Reports: controllers.NewReportController(store, a.manager.Dialect(), a.logger),
		Audit:   recorder,
		Backups: backups,
		RBAC:    rbac,
		JWT:     jwt.NewJWTManager(a.cfg.Auth.JWTSecret, time.Duration(a.cfg.Auth.TokenExpiration)*time.Second),
		Health:  a.manager.Ping,
		Logger:  a.logger,
	}).Setup()

	srv := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
