package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// ErrNotFound is returned when a requested user or photo does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned by InsertUser for a duplicate user name.
var ErrUserExists = errors.New("user already exists")

// Repository is the catalog store. Implementations are safe for concurrent
// use and own their connection pool.
type Repository interface {
	GetUsers(ctx context.Context) ([]User, error)
	GetUserByName(ctx context.Context, userName string) (*User, error)
	InsertUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, userName string) error

	GetPhoto(ctx context.Context, id int64) (*Photo, error)
	GetPhotos(ctx context.Context) ([]Photo, error)
	GetPhotosByUser(ctx context.Context, userID int64) ([]Photo, error)
	InsertPhotos(ctx context.Context, drafts []PhotoDraft) error
	DeletePhotos(ctx context.Context, ids []int64) error
	UpdatePhoto(ctx context.Context, photo *Photo) error

	Ping(ctx context.Context) error
	UpdateDBMetrics()
	Close() error
}

// Open returns the Postgres catalog when databaseURL is set and the SQLite
// catalog at sqlitePath otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Repository, error) {
	if databaseURL != "" {
		logging.Info("Using PostgreSQL catalog")
		return NewPostgres(ctx, databaseURL)
	}
	logging.Info("Using SQLite catalog")
	return New(ctx, sqlitePath)
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
