package server

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/spire-panel/spire/glide"
	"github.com/spire-panel/spire/identity"
	"github.com/spire-panel/spire/store"
)

const (
	// DefaultRoleName is bootstrapped onto users with no role claim.
	DefaultRoleName = "user"
	// AdminRoleName is the role automation principals act under, and the
	// only claim that keeps the wildcard visible in flattened permissions.
	AdminRoleName = "admin"
	// DefaultHealthTimeout bounds each node probe during fleet-wide polls.
	DefaultHealthTimeout = 1000 * time.Millisecond
)

// AgentClient is the slice of the Glide client the handlers use. Tests swap
// in a stub via WithAgentFactory.
type AgentClient interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) (*glide.HealthStats, error)
	CreateContainer(ctx context.Context, req glide.CreateContainerRequest) (*glide.Container, error)
	DeleteContainer(ctx context.Context, id string) error
	ContainerStatus(ctx context.Context, id string) (*glide.ContainerStatus, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RestartContainer(ctx context.Context, id string) error
	SendCommand(ctx context.Context, id, command string) (string, error)
	ListFiles(ctx context.Context, id, dir string) ([]glide.FileEntry, error)
	Logs(ctx context.Context, id string, tail int) ([]string, error)
}

// AgentFactory builds the client for one node from its connection details.
type AgentFactory func(baseURL, secret string) AgentClient

// Server holds the panel's stores and collaborators. Handlers hang off it as
// methods; construction wires everything once at startup.
type Server struct {
	DB       *gorm.DB
	Roles    *store.RoleStore
	Nodes    *store.NodeStore
	Servers  *store.ServerStore
	Settings *store.SettingsStore
	Identity identity.Provider

	// StatusCache is optional; nil disables health snapshot caching.
	StatusCache *store.NodeStatusCache

	// JWTSecret enables HS256 verification of session tokens. When empty,
	// tokens are resolved through the identity provider instead.
	JWTSecret string

	// HealthTimeout is the per-node deadline for fleet-wide health polls.
	HealthTimeout time.Duration

	newAgent AgentFactory
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// Option customizes a Server at construction.
type Option func(*Server)

// WithJWTSecret enables local HS256 session verification.
func WithJWTSecret(secret string) Option {
	return func(s *Server) { s.JWTSecret = secret }
}

// WithStatusCache enables node health snapshot caching.
func WithStatusCache(cache *store.NodeStatusCache) Option {
	return func(s *Server) { s.StatusCache = cache }
}

// WithHealthTimeout overrides the per-node probe deadline.
func WithHealthTimeout(d time.Duration) Option {
	return func(s *Server) { s.HealthTimeout = d }
}

// WithAgentFactory overrides how node agent clients are built.
func WithAgentFactory(f AgentFactory) Option {
	return func(s *Server) { s.newAgent = f }
}

// WithLogger overrides the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer wires the panel's stores against one database handle.
func NewServer(db *gorm.DB, provider identity.Provider, opts ...Option) *Server {
	s := &Server{
		DB:            db,
		Roles:         store.NewRoleStore(db),
		Nodes:         store.NewNodeStore(db),
		Servers:       store.NewServerStore(db),
		Settings:      store.NewSettingsStore(db),
		Identity:      provider,
		HealthTimeout: DefaultHealthTimeout,
		newAgent: func(baseURL, secret string) AgentClient {
			return glide.NewClient(baseURL, secret)
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// agent builds the Glide client for one node.
func (s *Server) agent(baseURL, secret string) AgentClient {
	return s.newAgent(baseURL, secret)
}
