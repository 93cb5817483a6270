package server

import (
	"context"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spire-panel/spire/glide"
	"github.com/spire-panel/spire/identity"
	"github.com/spire-panel/spire/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeAgent is a scriptable AgentClient. Unset hooks succeed with zero
// values.
type fakeAgent struct {
	mu sync.Mutex

	pingFn    func(ctx context.Context) error
	healthFn  func(ctx context.Context) (*glide.HealthStats, error)
	createFn  func(ctx context.Context, req glide.CreateContainerRequest) (*glide.Container, error)
	statusFn  func(ctx context.Context, id string) (*glide.ContainerStatus, error)
	commandFn func(ctx context.Context, id, command string) (string, error)

	deleted []string
	started []string
	stopped []string
}

func (f *fakeAgent) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeAgent) Health(ctx context.Context) (*glide.HealthStats, error) {
	if f.healthFn != nil {
		return f.healthFn(ctx)
	}
	return &glide.HealthStats{CPUCores: 4}, nil
}

func (f *fakeAgent) CreateContainer(ctx context.Context, req glide.CreateContainerRequest) (*glide.Container, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return &glide.Container{ID: "ctr-" + req.Name}, nil
}

func (f *fakeAgent) DeleteContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAgent) ContainerStatus(ctx context.Context, id string) (*glide.ContainerStatus, error) {
	if f.statusFn != nil {
		return f.statusFn(ctx, id)
	}
	return &glide.ContainerStatus{ID: id, State: "running", Running: true}, nil
}

func (f *fakeAgent) StartContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, id)
	return nil
}

func (f *fakeAgent) StopContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeAgent) RestartContainer(ctx context.Context, id string) error { return nil }

func (f *fakeAgent) SendCommand(ctx context.Context, id, command string) (string, error) {
	if f.commandFn != nil {
		return f.commandFn(ctx, id, command)
	}
	return "", nil
}

func (f *fakeAgent) ListFiles(ctx context.Context, id, dir string) ([]glide.FileEntry, error) {
	return []glide.FileEntry{{Name: "server.properties", Size: 1024}}, nil
}

func (f *fakeAgent) Logs(ctx context.Context, id string, tail int) ([]string, error) {
	return []string{"[12:00:00] server started"}, nil
}

func (f *fakeAgent) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type testEnv struct {
	srv      *Server
	provider *identity.MemoryProvider
	agent    *fakeAgent
	e        *httpexpect.Expect
}

// newTestEnv builds a server against in-memory storage with the default
// roles seeded and two users: admin (token "sess-admin") and a plain user
// (token "sess-user").
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Role{}, &models.Node{}, &models.Server{}, &models.Settings{},
	))

	provider := identity.NewMemoryProvider()
	provider.PutUser(identity.User{ID: "user_admin", Email: "admin@example.com", Role: "admin"})
	provider.PutUser(identity.User{ID: "user_plain", Email: "user@example.com", Role: "user"})
	provider.PutSession("sess-admin", "user_admin")
	provider.PutSession("sess-user", "user_plain")

	agent := &fakeAgent{}
	allOpts := append([]Option{
		WithAgentFactory(func(baseURL, secret string) AgentClient { return agent }),
	}, opts...)
	srv := NewServer(db, provider, allOpts...)

	ctx := context.Background()
	_, err = srv.Roles.UpsertRole(ctx, models.Role{
		Name: "user", Order: 0,
		Permissions: models.StringList{"profile:self", "servers:self"},
	})
	require.NoError(t, err)
	_, err = srv.Roles.UpsertRole(ctx, models.Role{
		Name: "admin", Order: 1,
		Permissions: models.StringList{"*"},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(NewGinEngine(srv))
	t.Cleanup(ts.Close)

	return &testEnv{
		srv:      srv,
		provider: provider,
		agent:    agent,
		e:        httpexpect.Default(t, ts.URL),
	}
}

func (env *testEnv) asAdmin() *httpexpect.Expect {
	return env.e.Builder(func(req *httpexpect.Request) {
		req.WithHeader("Authorization", "Bearer sess-admin")
	})
}

func (env *testEnv) asUser() *httpexpect.Expect {
	return env.e.Builder(func(req *httpexpect.Request) {
		req.WithHeader("Authorization", "Bearer sess-user")
	})
}
