package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database is the SQLite implementation of Repository.
type Database struct {
	db     *sql.DB
	dbPath string
}

var _ Repository = (*Database)(nil)

// New opens (creating if needed) the SQLite catalog at dbPath.
// dbPath is the database FILE; its parent directory must already exist and
// be writable. startup.LoadConfig validates this.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors under concurrent
	// per-user reconciliation.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db, dbPath: dbPath}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_name TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner INTEGER NOT NULL,
		name TEXT NOT NULL,
		folder TEXT NOT NULL DEFAULT '',
		time_created INTEGER NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		caption TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (owner) REFERENCES users(id) ON DELETE CASCADE,
		UNIQUE(owner, folder, name)
	);

	CREATE INDEX IF NOT EXISTS idx_photos_owner ON photos(owner);
	CREATE INDEX IF NOT EXISTS idx_photos_time_created ON photos(time_created);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

const userColumns = "id, user_name, display_name, password_hash"

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.UserName, &u.DisplayName, &u.PasswordHash)
	return u, err
}

// GetUsers returns every user ordered by id.
func (d *Database) GetUsers(ctx context.Context) ([]User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_users", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if u, err = scanUser(rows); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	err = rows.Err()
	return users, err
}

// GetUserByName returns ErrNotFound when no user has that name.
func (d *Database) GetUserByName(ctx context.Context, userName string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_user", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	u, err := scanUser(d.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE user_name = ?", userName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertUser stores user and sets its ID.
func (d *Database) InsertUser(ctx context.Context, user *User) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_user", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx,
		"INSERT INTO users (user_name, display_name, password_hash) VALUES (?, ?, ?)",
		user.UserName, user.DisplayName, user.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrUserExists, user.UserName)
		}
		return err
	}
	user.ID, err = res.LastInsertId()
	return err
}

// DeleteUser removes a user and, through the foreign key, their photos.
func (d *Database) DeleteUser(ctx context.Context, userName string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_user", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM users WHERE user_name = ?", userName)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const photoColumns = "id, owner, name, folder, time_created, file_size, caption"

func scanPhoto(row interface{ Scan(...any) error }) (Photo, error) {
	var (
		p       Photo
		created int64
	)
	if err := row.Scan(&p.ID, &p.Owner, &p.Name, &p.Folder, &created, &p.FileSize, &p.Caption); err != nil {
		return p, err
	}
	p.TimeCreated = time.Unix(created, 0).UTC()
	return p, nil
}

func (d *Database) queryPhotos(ctx context.Context, operation, query string, args ...any) ([]Photo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var p Photo
		if p, err = scanPhoto(rows); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	err = rows.Err()
	return photos, err
}

// GetPhotos returns the whole catalog. It is used by the derivative backfill
// and is not bounded by defaultTimeout.
func (d *Database) GetPhotos(ctx context.Context) ([]Photo, error) {
	return d.queryPhotos(ctx, "get_photos", "SELECT "+photoColumns+" FROM photos ORDER BY id")
}

// GetPhotosByUser returns the photos owned by userID.
func (d *Database) GetPhotosByUser(ctx context.Context, userID int64) ([]Photo, error) {
	return d.queryPhotos(ctx, "get_photos_by_user",
		"SELECT "+photoColumns+" FROM photos WHERE owner = ? ORDER BY id", userID)
}

// GetPhoto returns ErrNotFound when id is unknown.
func (d *Database) GetPhoto(ctx context.Context, id int64) (*Photo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_photo", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p, err := scanPhoto(d.db.QueryRowContext(ctx, "SELECT "+photoColumns+" FROM photos WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertPhotos inserts drafts in a single transaction. Either all rows are
// stored or none.
func (d *Database) InsertPhotos(ctx context.Context, drafts []PhotoDraft) (err error) {
	if len(drafts) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { recordQuery("insert_photos", start, err) }()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		duration := time.Since(start).Seconds()
		if err != nil {
			metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
			return
		}
		metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
		err = tx.Commit()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO photos (owner, name, folder, time_created, file_size, caption) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range drafts {
		dr := &drafts[i]
		if _, err = stmt.ExecContext(ctx, dr.Owner, dr.Name, dr.Folder, dr.TimeCreated.Unix(), dr.FileSize, dr.Caption); err != nil {
			return fmt.Errorf("insert %s: %w", dr.FullName(), err)
		}
	}

	metrics.DBRowsAffected.WithLabelValues("insert_photos").Observe(float64(len(drafts)))
	return nil
}

// DeletePhotos removes the rows with the given ids.
func (d *Database) DeletePhotos(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	defer func() { recordQuery("delete_photos", start, err) }()

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := d.db.ExecContext(ctx, "DELETE FROM photos WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return err
	}
	if n, rerr := res.RowsAffected(); rerr == nil && n > 0 {
		metrics.DBRowsAffected.WithLabelValues("delete_photos").Observe(float64(n))
	}
	return nil
}

// UpdatePhoto rewrites the mutable fields of an existing row.
func (d *Database) UpdatePhoto(ctx context.Context, photo *Photo) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_photo", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx,
		"UPDATE photos SET name = ?, folder = ?, time_created = ?, file_size = ?, caption = ? WHERE id = ?",
		photo.Name, photo.Folder, photo.TimeCreated.Unix(), photo.FileSize, photo.Caption, photo.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, p := range []string{dbPath, dbPath + "-wal"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", p, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only! Mode: %v - this will cause write failures", p, info.Mode())
		}
	}
	return nil
}
