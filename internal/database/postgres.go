package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// Postgres is the PostgreSQL implementation of Repository.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Postgres)(nil)

// NewPostgres connects to databaseURL and creates the schema if needed.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.initialize(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("PostgreSQL catalog ready (%s@%s/%s)", poolCfg.ConnConfig.User, poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Database)
	return p, nil
}

func (p *Postgres) initialize(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		user_name TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS photos (
		id BIGSERIAL PRIMARY KEY,
		owner BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		folder TEXT NOT NULL DEFAULT '',
		time_created TIMESTAMP NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		caption TEXT NOT NULL DEFAULT '',
		UNIQUE(owner, folder, name)
	);

	CREATE INDEX IF NOT EXISTS idx_photos_owner ON photos(owner);
	CREATE INDEX IF NOT EXISTS idx_photos_time_created ON photos(time_created);
	`)
	return err
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// UpdateDBMetrics updates database connection metrics
func (p *Postgres) UpdateDBMetrics() {
	metrics.DBConnectionsOpen.Set(float64(p.pool.Stat().TotalConns()))
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// GetUsers returns every user ordered by id.
func (p *Postgres) GetUsers(ctx context.Context) ([]User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_users", start, err) }()

	rows, err := p.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		return scanUser(row)
	})
	return users, err
}

// GetUserByName returns ErrNotFound when no user has that name.
func (p *Postgres) GetUserByName(ctx context.Context, userName string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_user", start, err) }()

	u, err := scanUser(p.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE user_name = $1", userName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertUser stores user and sets its ID.
func (p *Postgres) InsertUser(ctx context.Context, user *User) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_user", start, err) }()

	err = p.pool.QueryRow(ctx,
		"INSERT INTO users (user_name, display_name, password_hash) VALUES ($1, $2, $3) RETURNING id",
		user.UserName, user.DisplayName, user.PasswordHash).Scan(&user.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrUserExists, user.UserName)
	}
	return err
}

// DeleteUser removes a user and, through the foreign key, their photos.
func (p *Postgres) DeleteUser(ctx context.Context, userName string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_user", start, err) }()

	tag, err := p.pool.Exec(ctx, "DELETE FROM users WHERE user_name = $1", userName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pgScanPhoto(row interface{ Scan(...any) error }) (Photo, error) {
	var ph Photo
	err := row.Scan(&ph.ID, &ph.Owner, &ph.Name, &ph.Folder, &ph.TimeCreated, &ph.FileSize, &ph.Caption)
	ph.TimeCreated = ph.TimeCreated.UTC()
	return ph, err
}

func (p *Postgres) queryPhotos(ctx context.Context, operation, query string, args ...any) ([]Photo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	photos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Photo, error) {
		return pgScanPhoto(row)
	})
	return photos, err
}

// GetPhotos returns the whole catalog.
func (p *Postgres) GetPhotos(ctx context.Context) ([]Photo, error) {
	return p.queryPhotos(ctx, "get_photos", "SELECT "+photoColumns+" FROM photos ORDER BY id")
}

// GetPhotosByUser returns the photos owned by userID.
func (p *Postgres) GetPhotosByUser(ctx context.Context, userID int64) ([]Photo, error) {
	return p.queryPhotos(ctx, "get_photos_by_user",
		"SELECT "+photoColumns+" FROM photos WHERE owner = $1 ORDER BY id", userID)
}

// GetPhoto returns ErrNotFound when id is unknown.
func (p *Postgres) GetPhoto(ctx context.Context, id int64) (*Photo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_photo", start, err) }()

	ph, err := pgScanPhoto(p.pool.QueryRow(ctx, "SELECT "+photoColumns+" FROM photos WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ph, nil
}

// InsertPhotos copies drafts in with COPY inside one transaction.
func (p *Postgres) InsertPhotos(ctx context.Context, drafts []PhotoDraft) error {
	if len(drafts) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("insert_photos", start, err) }()

	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		n, cerr := tx.CopyFrom(ctx,
			pgx.Identifier{"photos"},
			[]string{"owner", "name", "folder", "time_created", "file_size", "caption"},
			pgx.CopyFromSlice(len(drafts), func(i int) ([]any, error) {
				d := drafts[i]
				return []any{d.Owner, d.Name, d.Folder, d.TimeCreated.UTC(), d.FileSize, d.Caption}, nil
			}),
		)
		if cerr != nil {
			return cerr
		}
		metrics.DBRowsAffected.WithLabelValues("insert_photos").Observe(float64(n))
		return nil
	})

	status := "commit"
	if err != nil {
		status = "rollback"
	}
	metrics.DBTransactionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return err
}

// DeletePhotos removes the rows with the given ids.
func (p *Postgres) DeletePhotos(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("delete_photos", start, err) }()

	tag, err := p.pool.Exec(ctx, "DELETE FROM photos WHERE id = ANY($1)", ids)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n > 0 {
		metrics.DBRowsAffected.WithLabelValues("delete_photos").Observe(float64(n))
	}
	return nil
}

// UpdatePhoto rewrites the mutable fields of an existing row.
func (p *Postgres) UpdatePhoto(ctx context.Context, photo *Photo) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_photo", start, err) }()

	tag, err := p.pool.Exec(ctx,
		"UPDATE photos SET name = $1, folder = $2, time_created = $3, file_size = $4, caption = $5 WHERE id = $6",
		photo.Name, photo.Folder, photo.TimeCreated.UTC(), photo.FileSize, photo.Caption, photo.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
