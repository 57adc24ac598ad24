package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/mjuvonen/truthseeker/internal/envstruct"
	"github.com/mjuvonen/truthseeker/internal/errors"
	"github.com/mjuvonen/truthseeker/internal/logging"
	"github.com/mjuvonen/truthseeker/internal/pprofserver"
	"github.com/mjuvonen/truthseeker/internal/progress"
	"github.com/mjuvonen/truthseeker/internal/session"
	"github.com/mjuvonen/truthseeker/internal/sqlite"
	"github.com/mjuvonen/truthseeker/internal/story"
)

type config struct {
	// Addr is the HTTP network address, e.g. "localhost:4000". Port 0 picks a
	// free port, which the e2e tests rely on.
	Addr string `env:"TRUTHSEEKER_ADDR" envDefault:"localhost:4000"`
	// SQLiteURL is the path to the SQLite database file or ":memory:".
	SQLiteURL string `env:"TRUTHSEEKER_SQLITE_URL" envDefault:"./truthseeker.sqlite"`
	// PoolPath points to a JSON or YAML story pool. Empty uses the embedded
	// pool.
	PoolPath string `env:"TRUTHSEEKER_POOL_PATH" envDefault:""`
}

type application struct {
	logger         *slog.Logger
	pool           *story.Pool
	sessions       session.Store
	sessionManager *scs.SessionManager
	progress       *progress.Repository
}

// sweepSessions drops idle case sessions once an hour until ctx is cancelled.
func (app *application) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.sessions.SweepExpired(); n > 0 {
				app.logger.LogAttrs(ctx, slog.LevelInfo, "swept expired sessions", slog.Int("count", n))
			}
		}
	}
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "parse config")
	}

	var (
		pool *story.Pool
		err  error
	)
	if cfg.PoolPath == "" {
		pool, err = story.Default()
	} else {
		pool, err = story.Load(cfg.PoolPath)
	}
	if err != nil {
		return errors.Wrap(err, "load story pool")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "loaded story pool", slog.Int("stories", pool.Len()))

	db, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 30 * 24 * time.Hour //nolint:mnd // player identity cookie.

	app := application{
		logger:         logger,
		pool:           pool,
		sessions:       session.NewMemoryStore(session.DefaultTTL, nil),
		sessionManager: sessionManager,
		progress:       progress.NewRepository(db, logger),
	}

	go app.sweepSessions(ctx, time.Hour)

	return app.configureAndStartServer(ctx, cfg.Addr)
}

func main() {
	ctx := context.Background()

	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}))
	logger := slog.New(loggerHandler)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Error(err.Error())
		os.Exit(1)
	}

	// Initialise pprof listening on localhost so that it's not open to the world.
	pprofPort := ":6060"
	if port, ok := os.LookupEnv("TRUTHSEEKER_PPROF_PORT"); ok {
		pprofPort = port
	}
	pprofserver.Launch(pprofPort, logger)

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server failed", errors.SlogError(err))
		os.Exit(1)
	}
}
