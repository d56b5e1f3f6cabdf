package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-catalog/internal/auth"
	"media-catalog/internal/database"
	"media-catalog/internal/indexer"
	"media-catalog/internal/media"
	"media-catalog/internal/storage"
)

const testPassword = "correct horse"

type stubProducer struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (p *stubProducer) Generate(_ context.Context, _, dst string) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("decode failed")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("derived"), 0o644)
}

type fixture struct {
	db       *database.Database
	store    *storage.Resolver
	indexer  *indexer.Indexer
	producer *stubProducer
	router   *mux.Router
	alice    database.User
	bob      database.User
	alicePic database.Photo
	bobPic   database.Photo
}

func newFixture(t *testing.T, metricsEnabled bool) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.New(filepath.Join(dir, "photos"), filepath.Join(dir, "previews"), filepath.Join(dir, "thumbnails"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	db, err := database.New(ctx, filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	f := &fixture{db: db, store: store, producer: &stubProducer{}}
	f.alice = database.User{UserName: "alice", DisplayName: "Alice", PasswordHash: hash}
	f.bob = database.User{UserName: "bob", DisplayName: "Bob", PasswordHash: hash}
	for _, u := range []*database.User{&f.alice, &f.bob} {
		if err := db.InsertUser(ctx, u); err != nil {
			t.Fatalf("InsertUser: %v", err)
		}
		writeFile(t, store.ResolvePhoto(u.UserName+"/photo.jpg"), "original-"+u.UserName)
	}

	taken := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := db.InsertPhotos(ctx, []database.PhotoDraft{
		{Owner: f.alice.ID, Name: "photo.jpg", TimeCreated: taken, FileSize: 14},
		{Owner: f.bob.ID, Name: "photo.jpg", TimeCreated: taken, FileSize: 12},
	}); err != nil {
		t.Fatalf("InsertPhotos: %v", err)
	}
	f.alicePic = onlyPhoto(t, db, f.alice.ID)
	f.bobPic = onlyPhoto(t, db, f.bob.ID)

	users := auth.NewUserCache(db)
	if err := users.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	previews := media.NewManager("preview", f.producer)
	thumbnails := media.NewManager("thumbnail", f.producer)
	f.indexer = indexer.New(db, store, indexer.NewScanner(store, nil), time.Hour)

	h := New(Deps{
		Repo:       db,
		Storage:    store,
		Indexer:    f.indexer,
		Previews:   previews,
		Thumbnails: thumbnails,
		Backfill: media.NewBackfill(db, store, nil,
			media.Target{Manager: previews, Resolve: store.ResolvePreview},
			media.Target{Manager: thumbnails, Resolve: store.ResolveThumbnail}),
		Users: users,
	})
	f.router = h.Router(metricsEnabled)
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func onlyPhoto(t *testing.T, db *database.Database, owner int64) database.Photo {
	t.Helper()
	photos, err := db.GetPhotosByUser(context.Background(), owner)
	if err != nil || len(photos) != 1 {
		t.Fatalf("GetPhotosByUser(%d) = %v, %v", owner, photos, err)
	}
	return photos[0]
}

func (f *fixture) do(t *testing.T, method, path, user string) *httptest.ResponseRecorder {
	t.Helper()
	return f.send(t, method, path, user, "")
}

func (f *fixture) send(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.SetBasicAuth(user, testPassword)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAPIRequiresBasicAuth(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/photos", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no credentials: status = %d, want 401", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Basic") {
		t.Errorf("WWW-Authenticate = %q", rec.Header().Get("WWW-Authenticate"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/photos", nil)
	req.SetBasicAuth("alice", "wrong password")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want 401", rec.Code)
	}
}

func TestProbesArePublic(t *testing.T) {
	f := newFixture(t, false)

	for _, path := range []string{"/livez", "/readyz", "/healthz", "/version"} {
		t.Run(path, func(t *testing.T) {
			if rec := f.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
				t.Errorf("GET %s = %d, want 200", path, rec.Code)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != statusHealthy || resp.Indexing || resp.BackfillRunning {
		t.Errorf("health = %+v", resp)
	}
}

func TestReadinessFailsWhenDatabaseIsClosed(t *testing.T) {
	f := newFixture(t, false)
	_ = f.db.Close()

	if rec := f.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestListPhotos_OnlyOwnPhotos(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/photos", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var photos []database.Photo
	if err := json.NewDecoder(rec.Body).Decode(&photos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(photos) != 1 || photos[0].ID != f.alicePic.ID {
		t.Errorf("photos = %+v, want only %d", photos, f.alicePic.ID)
	}
}

func TestGetPhoto(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"own photo", fmt.Sprintf("/api/photos/%d", f.alicePic.ID), http.StatusOK},
		{"other user's photo", fmt.Sprintf("/api/photos/%d", f.bobPic.ID), http.StatusNotFound},
		{"unknown photo", "/api/photos/999999", http.StatusNotFound},
		{"non-numeric id", "/api/photos/abc", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, http.MethodGet, tt.path, "alice"); rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestGetPreview_GeneratesOnce(t *testing.T) {
	f := newFixture(t, false)
	path := fmt.Sprintf("/api/photos/%d/preview", f.alicePic.ID)

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodGet, path, "alice")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
		if body, _ := io.ReadAll(rec.Body); string(body) != "derived" {
			t.Fatalf("request %d: body = %q, want derivative", i, body)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != derivativeCacheControl {
			t.Errorf("Cache-Control = %q", cc)
		}
	}
	if got := f.producer.calls.Load(); got != 1 {
		t.Errorf("producer called %d times, want 1", got)
	}

	want := f.store.ResolvePreview(f.alicePic.PartialDerivativePath())
	if !f.store.Exists(want) {
		t.Errorf("preview not written to %s", want)
	}
}

func TestGetThumbnail_FallsBackToOriginal(t *testing.T) {
	f := newFixture(t, false)
	f.producer.fail.Store(true)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/photos/%d/thumbnail", f.alicePic.ID), "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body, _ := io.ReadAll(rec.Body); string(body) != "original-alice" {
		t.Errorf("body = %q, want the original", body)
	}
}

func TestDownloadPhoto(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/photos/%d/download", f.bobPic.ID), "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="photo.jpg"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if body, _ := io.ReadAll(rec.Body); string(body) != "original-bob" {
		t.Errorf("body = %q", body)
	}
	if f.producer.calls.Load() != 0 {
		t.Error("download generated a derivative")
	}
}

func TestMovePhoto(t *testing.T) {
	f := newFixture(t, false)
	path := fmt.Sprintf("/api/photos/%d/location", f.alicePic.ID)
	writeFile(t, f.store.ResolvePhoto("alice/taken/photo.jpg"), "other")

	tests := []struct {
		name   string
		user   string
		body   string
		want   int
		folder string
	}{
		{"into folder", "alice", `{"folder":"2016"}`, http.StatusOK, "2016"},
		{"same folder", "alice", `{"folder":"2016"}`, http.StatusOK, "2016"},
		{"back to root", "alice", `{"folder":""}`, http.StatusOK, ""},
		{"nested folder", "alice", `{"folder":"a/b"}`, http.StatusBadRequest, ""},
		{"parent folder", "alice", `{"folder":".."}`, http.StatusBadRequest, ""},
		{"hidden folder", "alice", `{"folder":".trash"}`, http.StatusBadRequest, ""},
		{"bad body", "alice", `{`, http.StatusBadRequest, ""},
		{"name taken", "alice", `{"folder":"taken"}`, http.StatusConflict, ""},
		{"other user's photo", "bob", `{"folder":"2016"}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.send(t, http.MethodPost, path, tt.user, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("POST %s = %d, want %d", path, rec.Code, tt.want)
			}
			got, err := f.db.GetPhoto(context.Background(), f.alicePic.ID)
			if err != nil {
				t.Fatalf("GetPhoto() error: %v", err)
			}
			if got.Folder != tt.folder {
				t.Errorf("Folder = %q, want %q", got.Folder, tt.folder)
			}
			rel, _ := got.PartialPath(&f.alice)
			if !f.store.Exists(f.store.ResolvePhoto(rel)) {
				t.Errorf("original missing at %s", rel)
			}
		})
	}
}

func TestMovePhoto_RestoresFileWhenCatalogUpdateFails(t *testing.T) {
	f := newFixture(t, false)
	// A stale row holding the destination name makes the update violate
	// the per-owner uniqueness constraint.
	if err := f.db.InsertPhotos(context.Background(), []database.PhotoDraft{
		{Owner: f.alice.ID, Name: "photo.jpg", Folder: "stale", TimeCreated: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}

	rec := f.send(t, http.MethodPost, fmt.Sprintf("/api/photos/%d/location", f.alicePic.ID), "alice", `{"folder":"stale"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !f.store.Exists(f.store.ResolvePhoto("alice/photo.jpg")) {
		t.Error("original was not moved back")
	}
	if f.store.Exists(f.store.ResolvePhoto("alice/stale/photo.jpg")) {
		t.Error("original left at the destination")
	}
}

func TestDeletePhoto(t *testing.T) {
	f := newFixture(t, false)
	path := fmt.Sprintf("/api/photos/%d", f.alicePic.ID)
	original := f.store.ResolvePhoto("alice/photo.jpg")
	preview := f.store.ResolvePreview(f.alicePic.PartialDerivativePath())

	if rec := f.do(t, http.MethodGet, path+"/preview", "alice"); rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}

	if rec := f.do(t, http.MethodDelete, path, "bob"); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE by another user = %d, want 404", rec.Code)
	}
	if !f.store.Exists(original) {
		t.Fatal("another user's request removed the original")
	}

	if rec := f.do(t, http.MethodDelete, path, "alice"); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d, want 204", rec.Code)
	}
	for _, p := range []string{original, preview} {
		if f.store.Exists(p) {
			t.Errorf("%s still exists", p)
		}
	}
	if _, err := f.db.GetPhoto(context.Background(), f.alicePic.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetPhoto(deleted) error = %v, want ErrNotFound", err)
	}
	if rec := f.do(t, http.MethodDelete, path, "alice"); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d, want 404", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/stats", "alice")
	var stats struct {
		Users  int `json:"users"`
		Photos int `json:"photos"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Users != 2 || stats.Photos != 2 {
		t.Errorf("stats = %+v, want 2 users and 2 photos", stats)
	}
}

func TestTriggerScan(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/scan", "alice")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	deadline := time.Now().Add(5 * time.Second)
	for f.indexer.LastIndexTime().IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("triggered scan never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTriggerBackfill(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/previews/backfill", "alice")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	want := []string{
		f.store.ResolvePreview(f.alicePic.PartialDerivativePath()),
		f.store.ResolveThumbnail(f.alicePic.PartialDerivativePath()),
		f.store.ResolvePreview(f.bobPic.PartialDerivativePath()),
		f.store.ResolveThumbnail(f.bobPic.PartialDerivativePath()),
	}
	deadline := time.Now().Add(5 * time.Second)
	for _, path := range want {
		for !f.store.Exists(path) {
			if time.Now().After(deadline) {
				t.Fatalf("backfill never wrote %s", path)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)

	f.do(t, http.MethodGet, "/livez", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "media_catalog_http_requests_total") {
		t.Error("metrics output missing http request counter")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("a\"b\\c\n.jpg"); got != "a_b_c_.jpg" {
		t.Errorf("sanitizeFilename = %q", got)
	}
}
