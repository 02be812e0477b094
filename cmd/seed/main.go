package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/fixtures"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type options struct {
	dsn        string
	fixture    string
	reset      bool
	migrate    bool
	migrations string
	bcryptCost int
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("seed: %v", err)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts, err := parseOptions(args, cfg)
	if err != nil {
		return err
	}
	if opts.dsn == "" {
		return errors.New("a database is required: pass --dsn or set POSTGRES_DSN")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	fixture, err := loadFixture(opts.fixture)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pgCfg := cfg.Postgres
	pgCfg.DSN = opts.dsn
	pg, err := persistence.NewPostgres(ctx, pgCfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if opts.migrate {
		if err := persistence.RunMigrations(ctx, pg.Pool, opts.migrations, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if opts.reset {
		logger.Warn("removing existing helpdesk data")
		if err := pg.Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	loader := &fixtures.Loader{
		Users:   repository.NewUserRepository(pg.DB),
		Tickets: repository.NewTicketRepository(pg.DB),
		Hasher:  auth.NewPasswordHasher(opts.bcryptCost),
		Logger:  logger,
	}
	res, err := loader.Apply(ctx, fixture)
	if err != nil {
		return err
	}
	logger.Info("database seeded",
		zap.Int("users", res.Users),
		zap.Int("tickets", res.Tickets),
		zap.Int("skipped_tickets", res.SkippedTickets))
	return nil
}

func parseOptions(args []string, cfg *config.Config) (options, error) {
	opts := options{}
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&opts.dsn, "dsn", cfg.Postgres.DSN, "Postgres connection string (default: POSTGRES_DSN)")
	flagSet.StringVarP(&opts.fixture, "fixture", "f", "", "YAML fixture file (default: bundled demo data)")
	flagSet.BoolVar(&opts.reset, "reset", false, "delete all users, tickets and timelines before seeding")
	flagSet.BoolVar(&opts.migrate, "migrate", cfg.Postgres.RunMigrations, "apply pending migrations first")
	flagSet.StringVar(&opts.migrations, "migrations-dir", cfg.Postgres.MigrationsDir, "directory holding *.sql migrations")
	flagSet.IntVar(&opts.bcryptCost, "bcrypt-cost", cfg.Auth.BcryptCost, "bcrypt cost for fixture passwords")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

func loadFixture(path string) (*fixtures.Fixture, error) {
	if path == "" {
		return fixtures.Default()
	}
	return fixtures.Load(path)
}
