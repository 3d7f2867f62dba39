package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/handler"
	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/Koyo-os/survey-service/internal/template"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/Koyo-os/survey-service/pkg/transport/listener"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	envFile    string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "survey-service",
	Short:         "Survey builder service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Init(configPath, envFile); err != nil {
			return fmt.Errorf("error init config: %w", err)
		}
		return logger.Init(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the request consumer",
	RunE:  runServe,
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Print the question type catalog",
	RunE:  runTypes,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store the built-in survey templates",
	RunE:  runSeed,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the storage schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "path to an optional .env file")
	typesCmd.Flags().String("plan", "", "only list types available on this plan")

	rootCmd.AddCommand(serveCmd, typesCmd, seedCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.closers.Close(); err != nil {
			log.Error("error closing resources", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           handler.Init(deps.service, log.Named("http")).Wire(deps.health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", zap.String("addr", cfg.App.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})

	if deps.consumer != nil {
		events := make(chan entity.Event, 100)
		list := listener.Init(events, log.Named("listener"), cfg, deps.service)

		g.Go(func() error {
			deps.consumer.ConsumeMessages(ctx, events)
			return nil
		})
		g.Go(func() error {
			list.Listen(ctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		return err
	}

	log.Info("service stopped")
	return nil
}

func runTypes(cmd *cobra.Command, args []string) error {
	reg := registry.Default()

	types := reg.ListTypes()
	if plan, _ := cmd.Flags().GetString("plan"); plan != "" {
		types = reg.AvailableFor(registry.Plan(plan))
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tCATEGORY\tPLAN")
	for _, t := range types {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Key, t.DisplayName, t.Category, t.Plan)
	}
	return w.Flush()
}

func runSeed(cmd *cobra.Command, args []string) error {
	log := logger.Get()
	ctx := cmd.Context()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	templates, err := template.Seed(registry.Default())
	if err != nil {
		return fmt.Errorf("error build templates: %w", err)
	}

	for _, tmpl := range templates {
		id, err := store.Save(ctx, tmpl)
		if err != nil {
			return fmt.Errorf("error save template %q: %w", tmpl.Title, err)
		}
		log.Info("template stored",
			zap.String("template_id", id.String()),
			zap.String("title", tmpl.Title))
	}

	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	store, err := openStorage(cmd.Context(), cfg, logger.Get())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}

	logger.Get().Info("schema is up to date", zap.String("driver", cfg.Storage.Driver))
	return nil
}
