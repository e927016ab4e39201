package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/classbook/register-archive/config"
	"github.com/classbook/register-archive/internal/application/command"
	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/domain/register"
	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/internal/infrastructure/persistence/postgres"
	"github.com/classbook/register-archive/internal/infrastructure/persistence/redis"
	"github.com/classbook/register-archive/internal/infrastructure/render/pdf"
	"github.com/classbook/register-archive/internal/infrastructure/storage"
	"github.com/classbook/register-archive/pkg/logger"
)

// app holds the wired collaborators of one archiver run.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	source   school.Source
	calendar *period.Calendar
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

func loadConfig(opts ...config.Option) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.FromConfig(cfg.Observability.LogLevel, cfg.Observability.LogFormat).
		With("app", cfg.App.Name, "env", string(cfg.App.Environment))
	return cfg, log, nil
}

func connectDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*postgres.Connection, error) {
	db := cfg.Database
	conn, err := postgres.NewConnection(ctx, postgres.Config{
		URL:             db.URL,
		Host:            db.Host,
		Port:            db.Port,
		Database:        db.Name,
		User:            db.User,
		Password:        db.Password,
		SSLMode:         db.SSLMode,
		MaxConns:        int32(db.MaxConns),
		MinConns:        int32(db.MinConns),
		MaxConnLifetime: db.ConnMaxLifetime,
		MaxConnIdleTime: db.ConnMaxIdleTime,
		ConnectTimeout:  db.ConnectTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")
	return conn, nil
}

// openApp connects the school database, puts the membership cache in front
// of it when Redis is available, and builds the term calendar.
func openApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	a.calendar, err = period.NewCalendar(cfg.School.Settings())
	if err != nil {
		return nil, fmt.Errorf("invalid school year: %w", err)
	}

	conn, err := connectDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)
	a.source = postgres.NewRegisterRepository(conn)

	if cfg.Redis.Disabled {
		log.Info("membership cache disabled")
		return a, nil
	}
	cache, err := redis.NewCache(ctx, redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, log)
	if err != nil {
		log.Warn("failed to connect to Redis, membership cache disabled", "error", err)
		return a, nil
	}
	a.closers = append(a.closers, func() { _ = cache.Close() })
	membership := redis.NewMembershipCache(cache, cfg.Redis.MembershipTTL, log)
	a.source = membership.WrapSource(a.source)
	log.Info("membership cache enabled", "ttl", cfg.Redis.MembershipTTL.String())
	return a, nil
}

// rendererFactory creates landscape A4 documents stamped with the archive settings.
func rendererFactory(cfg config.ArchiveConfig, version string) command.RendererFactory {
	return func(title, author string) command.Renderer {
		opts := pdf.DefaultOptions()
		opts.Title = title
		opts.Author = author
		opts.Creator = "register-archive " + version
		opts.CreatedAt = cfg.CreatedAt
		opts.Footer = cfg.Footer
		return pdf.New(opts)
	}
}

// batchHandler builds the generator over source and wraps it in the batch runner.
func batchHandler(cfg *config.Config, log *slog.Logger, source school.Source, cal *period.Calendar, root string) *command.BatchGenerateHandler {
	gen := command.NewGenerateRegisterHandler(command.Deps{
		Source:      source,
		Calendar:    cal,
		Scales:      register.DefaultScales(),
		Markers:     register.DefaultScoreMarkers(),
		NewRenderer: rendererFactory(cfg.Archive, cfg.App.Version),
		Sink:        storage.NewFileSink(root, log),
		Logger:      log,
	})
	return command.NewBatchGenerateHandler(gen, cfg.Archive.Concurrency, log)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT
// ══════════════════════════════════════════════════════════════════════════════

func printReport(w io.Writer, res *command.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tID\tNAME\tSTATUS\tPAGES\tDETAIL")
	for _, o := range res.Outcomes {
		detail := o.Path
		switch o.Status {
		case command.StatusSkipped:
			detail = o.Reason
		case command.StatusFailed:
			detail = o.Reason
			if o.Err != nil {
				detail = o.Err.Error()
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%s\n", o.Variant, o.EntityID, o.Label, o.Status, o.Pages, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nrun %s: %d created, %d skipped, %d failed in %s\n",
		res.RunID,
		res.Count(command.StatusCreated),
		res.Count(command.StatusSkipped),
		res.Count(command.StatusFailed),
		res.Duration.Round(time.Millisecond))
	if res.Failed() {
		return errFailedDocuments
	}
	return nil
}
