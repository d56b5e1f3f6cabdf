package indexer

import (
	"context"
	"errors"
	"sync"

	"media-catalog/internal/database"
)

// fakeRepo is an in-memory database.Repository.
type fakeRepo struct {
	mu     sync.Mutex
	users  []database.User
	photos map[int64]database.Photo
	nextID int64

	usersErr  error
	insertErr func(drafts []database.PhotoDraft) error
	inserts   int
	deleteErr func(ids []int64) error
	deletes   int
}

func newFakeRepo(users ...database.User) *fakeRepo {
	return &fakeRepo{users: users, photos: make(map[int64]database.Photo)}
}

func (f *fakeRepo) GetUsers(context.Context) ([]database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return append([]database.User(nil), f.users...), nil
}

func (f *fakeRepo) GetUserByName(_ context.Context, name string) (*database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.UserName == name {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeRepo) InsertUser(_ context.Context, u *database.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = int64(len(f.users) + 1)
	f.users = append(f.users, *u)
	return nil
}

func (f *fakeRepo) DeleteUser(context.Context, string) error { return errors.New("not implemented") }

func (f *fakeRepo) GetPhoto(_ context.Context, id int64) (*database.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (f *fakeRepo) GetPhotos(context.Context) ([]database.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]database.Photo, 0, len(f.photos))
	for _, p := range f.photos {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) GetPhotosByUser(_ context.Context, userID int64) ([]database.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []database.Photo
	for _, p := range f.photos {
		if p.Owner == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertPhotos(_ context.Context, drafts []database.PhotoDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		if err := f.insertErr(drafts); err != nil {
			return err
		}
	}
	for i := range drafts {
		f.nextID++
		f.photos[f.nextID] = drafts[i].ToPhoto(f.nextID)
	}
	return nil
}

func (f *fakeRepo) DeletePhotos(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		if err := f.deleteErr(ids); err != nil {
			return err
		}
	}
	for _, id := range ids {
		delete(f.photos, id)
	}
	return nil
}

func (f *fakeRepo) UpdatePhoto(_ context.Context, p *database.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[p.ID] = *p
	return nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) UpdateDBMetrics()           {}
func (f *fakeRepo) Close() error               { return nil }

func (f *fakeRepo) byFullName(owner int64) map[string]database.Photo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]database.Photo)
	for _, p := range f.photos {
		if p.Owner == owner {
			out[p.FullName()] = p
		}
	}
	return out
}
