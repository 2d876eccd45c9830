package cli

import (
	"context"
	"database/sql"

	"ServicerFeed/internal/config"
	"ServicerFeed/internal/database"
	"ServicerFeed/internal/feed"
	"ServicerFeed/internal/ingest"
	"ServicerFeed/internal/landing"
	"ServicerFeed/internal/loader"
	"ServicerFeed/internal/manifest"
	"ServicerFeed/internal/remote"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// runtime holds the connected pieces one command needs. Close releases both
// database handles.
type runtime struct {
	sqlDB   *sql.DB
	pool    *pgxpool.Pool
	ledger  *manifest.Ledger
	service *ingest.Service
}

func (r *runtime) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
	if r.sqlDB != nil {
		r.sqlDB.Close()
	}
}

// buildRuntime connects to the database, applies any feed overrides, and
// wires the ingestion service against the configured FTPS endpoint.
func buildRuntime(ctx context.Context) (*runtime, error) {
	if err := feed.LoadOverrides(config.FeedOverridesPath()); err != nil {
		return nil, errors.Wrap(err, "loading feed overrides")
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return nil, errors.New("database not configured: set DATABASE_URL or DB_HOST/DB_USER/DB_PASSWORD/DB_NAME")
	}

	sqlDB, err := database.ConnectSQL(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	pool, err := database.ConnectPool(ctx, dbURL)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	connector := remote.NewFTPSConnector(remote.Config{
		Host:        config.FTPHost(),
		Port:        config.FTPPort(),
		Username:    config.FTPUsername(),
		Password:    config.FTPPassword(),
		Dir:         config.FTPRemoteDir(),
		ImplicitTLS: config.FTPImplicitTLS(),
		Timeout:     config.DefaultFTPTimeout,
	})

	ledger := manifest.NewLedger(sqlDB)
	fileLoader := loader.New(landing.NewPGStore(pool))

	return &runtime{
		sqlDB:   sqlDB,
		pool:    pool,
		ledger:  ledger,
		service: ingest.NewService(connector, ledger, fileLoader),
	}, nil
}
