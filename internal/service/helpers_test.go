package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"flatfinder/internal/config"
	"flatfinder/internal/queue"
	"flatfinder/internal/repository"
	"flatfinder/internal/repository/bolt"
	"flatfinder/internal/security"
	"flatfinder/internal/storage"
)

var testParams = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type fakeRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (f *fakeRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revoked == nil {
		f.revoked = map[string]time.Duration{}
	}
	f.revoked[tokenID] = ttl
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (f *fakePublisher) Publish(_ context.Context, task queue.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) Bucket() string { return "test-photos" }

func (f *fakeObjects) PutObject(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) GetObject(_ context.Context, key string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, 0, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type testEnv struct {
	store     *repository.Store
	cfg       *config.AppConfig
	revoker   *fakeRevoker
	publisher *fakePublisher
	objects   *fakeObjects

	auth      *AuthService
	users     *UserService
	flats     *FlatService
	favorites *FavoriteService
	messages  *MessageService
	photos    *PhotoService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:       "test-jwt-secret",
			JWTTTL:          time.Hour,
			SignatureSecret: "test-signature-secret",
		},
		Storage: config.StorageConfig{MaxPhotoBytes: 4096},
	}

	env := &testEnv{
		store:     store,
		cfg:       cfg,
		revoker:   &fakeRevoker{},
		publisher: &fakePublisher{},
		objects:   newFakeObjects(),
	}
	log := zerolog.Nop()
	env.auth = NewAuthService(store.Users, env.revoker, cfg.Security, testParams, log)
	env.users = NewUserService(store.Users, store.Flats, env.publisher, testParams, log)
	env.flats = NewFlatService(store.Flats, env.publisher, log)
	env.favorites = NewFavoriteService(store.Favorites)
	env.messages = NewMessageService(store.Messages, store.Flats, store.Users, log)
	env.photos = NewPhotoService(store.Photos, store.Flats, env.objects, cfg, log)
	return env
}

// register creates an account and returns the identity the gateway would
// attach for it.
func (e *testEnv) register(t *testing.T, email string) security.Identity {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Birthdate: "1990-05-17",
		Email:     email,
		Password:  "secret1",
	})
	require.NoError(t, err)
	return security.Identity{UserID: user.ID, Email: user.Email}
}

func (e *testEnv) admin(t *testing.T, email string) security.Identity {
	t.Helper()
	id := e.register(t, email)
	require.NoError(t, e.store.Users.SetAdmin(context.Background(), id.UserID, true))
	id.IsAdmin = true
	return id
}

func (e *testEnv) createFlat(t *testing.T, owner security.Identity, city string, rent int) string {
	t.Helper()
	flat, err := e.flats.Create(context.Background(), owner, FlatInput{
		City:          city,
		StreetName:    "Main Street",
		StreetNumber:  12,
		AreaSize:      60,
		YearBuilt:     1998,
		RentPrice:     rent,
		DateAvailable: "2025-03-01",
	})
	require.NoError(t, err)
	return flat.ID
}
