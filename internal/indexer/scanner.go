package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
	"media-catalog/internal/storage"
	"media-catalog/internal/timestamp"
)

// maxDepth is how deep below a user's root files are picked up:
// <root>/<name> and <root>/<folder>/<name>.
const maxDepth = 2

// ScanOutcome is everything found under one user's root.
type ScanOutcome struct {
	User   database.User
	Drafts []database.PhotoDraft
}

// Scanner walks user roots and turns files into photo drafts.
type Scanner struct {
	storage  *storage.Resolver
	resolver *timestamp.Resolver
}

// NewScanner creates a Scanner. A nil resolver uses timestamp.Default().
func NewScanner(store *storage.Resolver, resolver *timestamp.Resolver) *Scanner {
	if resolver == nil {
		resolver = timestamp.Default()
	}
	return &Scanner{storage: store, resolver: resolver}
}

// Scan walks every user's root concurrently. Outcomes are returned in the
// same order as users. Failing to create a missing root aborts the scan.
func (s *Scanner) Scan(ctx context.Context, users []database.User) ([]ScanOutcome, error) {
	outcomes := make([]ScanOutcome, len(users))

	g, ctx := errgroup.WithContext(ctx)
	for i := range users {
		i := i
		g.Go(func() error {
			out, err := s.scanUser(ctx, users[i])
			if err != nil {
				return fmt.Errorf("scan %s: %w", users[i].UserName, err)
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Scanner) scanUser(ctx context.Context, user database.User) (ScanOutcome, error) {
	out := ScanOutcome{User: user}
	root := s.storage.ResolvePhoto(user.UserName)

	if !s.storage.Exists(root) {
		logging.Info("Creating media root for %s at %s", user.UserName, root)
		if err := os.MkdirAll(root, 0o755); err != nil {
			return out, fmt.Errorf("failed to create user root: %w", err)
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logging.Warn("Skipping unreadable entry %s: %v", path, err)
			metrics.IndexerFilesSkipped.WithLabelValues("unreadable").Inc()
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if mediatypes.IsHidden(name) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator)) + 1

		if d.IsDir() {
			if depth >= maxDepth {
				metrics.IndexerFilesSkipped.WithLabelValues("depth").Inc()
				return fs.SkipDir
			}
			return nil
		}
		var target fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			// Links are followed: a link to a directory is not a file.
			info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			target = info
		} else if !d.Type().IsRegular() {
			return nil
		}
		if mediatypes.GetFileType(mediatypes.Ext(name)) == mediatypes.FileTypeSidecar {
			return nil
		}

		created, ok := s.resolver.Resolve(path)
		if !ok {
			logging.Warn("Skipping %s: could not determine creation time", path)
			metrics.IndexerFilesSkipped.WithLabelValues("no_timestamp").Inc()
			return nil
		}

		draft := database.PhotoDraft{
			Owner:       user.ID,
			Name:        name,
			TimeCreated: created,
		}
		if depth == maxDepth {
			draft.Folder = filepath.Base(filepath.Dir(path))
		}
		if target != nil {
			draft.FileSize = target.Size()
		} else if info, err := d.Info(); err == nil {
			draft.FileSize = info.Size()
		}

		out.Drafts = append(out.Drafts, draft)
		metrics.IndexerFilesScanned.Inc()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn("Walk of %s stopped early: %v", root, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}

	logging.Debug("Scanned %s: %d files", user.UserName, len(out.Drafts))
	return out, nil
}
