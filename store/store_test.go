package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spire-panel/spire/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Role{}, &models.Node{}, &models.Server{}, &models.Settings{},
	))
	return db
}

func TestRoleStoreUpsertAndList(t *testing.T) {
	s := NewRoleStore(newTestDB(t))
	ctx := context.Background()

	created, err := s.UpsertRole(ctx, models.Role{
		Name:        "user",
		Order:       0,
		Permissions: models.StringList{"profile:self", "servers:self"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	// Second upsert with the same name updates in place.
	updated, err := s.UpsertRole(ctx, models.Role{
		Name:        "user",
		Order:       2,
		Permissions: models.StringList{"profile:self"},
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)

	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, 2, roles[0].Order)
	require.Equal(t, models.StringList{"profile:self"}, roles[0].Permissions)
}

func TestRoleStoreRejectsUnknownPermission(t *testing.T) {
	s := NewRoleStore(newTestDB(t))

	_, err := s.UpsertRole(context.Background(), models.Role{
		Name:        "mod",
		Permissions: models.StringList{"bogus:token"},
	})
	var invalid *InvalidPermissionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "bogus:token", invalid.Token)
}

func TestRoleStoreListOrdersByRank(t *testing.T) {
	s := NewRoleStore(newTestDB(t))
	ctx := context.Background()

	for _, r := range []models.Role{
		{Name: "admin", Order: 5, Permissions: models.StringList{"*"}},
		{Name: "user", Order: 0, Permissions: models.StringList{"profile:self"}},
		{Name: "mod", Order: 2, Permissions: models.StringList{"servers:read"}},
	} {
		_, err := s.UpsertRole(ctx, r)
		require.NoError(t, err)
	}

	roles, err := s.ListRoles(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"user", "mod", "admin"}, []string{roles[0].Name, roles[1].Name, roles[2].Name})

	grants, err := s.Grants(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 3)
	require.Equal(t, []string{"*"}, grants[2].Permissions)
}

func TestNodeStoreDuplicateRejected(t *testing.T) {
	s := NewNodeStore(newTestDB(t))
	ctx := context.Background()

	_, err := s.CreateNode(ctx, models.Node{
		Name:          "node-1",
		ConnectionURL: "https://node1.example.com:8443",
		Secret:        "s1",
	})
	require.NoError(t, err)

	_, err = s.CreateNode(ctx, models.Node{
		Name:          "node-1",
		ConnectionURL: "https://other.example.com:8443",
	})
	require.ErrorIs(t, err, ErrDuplicateNode)

	_, err = s.CreateNode(ctx, models.Node{
		Name:          "node-2",
		ConnectionURL: "https://node1.example.com:8443",
	})
	require.ErrorIs(t, err, ErrDuplicateNode)
}

func TestNodeStorePortValidation(t *testing.T) {
	s := NewNodeStore(newTestDB(t))
	ctx := context.Background()

	_, err := s.CreateNode(ctx, models.Node{
		Name:            "node-1",
		ConnectionURL:   "https://node1.example.com:8443",
		PortAllocations: models.IntList{80},
	})
	require.Error(t, err)

	node, err := s.CreateNode(ctx, models.Node{
		Name:            "node-1",
		ConnectionURL:   "https://node1.example.com:8443",
		PortAllocations: models.IntList{25565, 25566},
	})
	require.NoError(t, err)

	bad := []int{70000}
	_, err = s.UpdateNode(ctx, node.ID, models.NodeUpdate{PortAllocations: &bad})
	require.Error(t, err)
}

func TestNodeStoreUpdate(t *testing.T) {
	s := NewNodeStore(newTestDB(t))
	ctx := context.Background()

	a, err := s.CreateNode(ctx, models.Node{Name: "node-a", ConnectionURL: "https://a.example.com"})
	require.NoError(t, err)
	_, err = s.CreateNode(ctx, models.Node{Name: "node-b", ConnectionURL: "https://b.example.com"})
	require.NoError(t, err)

	// Renaming onto another node's name is a duplicate.
	name := "node-b"
	_, err = s.UpdateNode(ctx, a.ID, models.NodeUpdate{Name: &name})
	require.ErrorIs(t, err, ErrDuplicateNode)

	name = "node-a2"
	ports := []int{30000}
	got, err := s.UpdateNode(ctx, a.ID, models.NodeUpdate{Name: &name, PortAllocations: &ports})
	require.NoError(t, err)
	require.Equal(t, "node-a2", got.Name)
	require.Equal(t, models.IntList{30000}, got.PortAllocations)
}

func TestServerStoreUpsertRequiresContainerID(t *testing.T) {
	s := NewServerStore(newTestDB(t))

	_, err := s.UpsertServer(context.Background(), models.Server{Name: "smp"})
	require.ErrorIs(t, err, ErrMissingServerID)
}

func TestServerStorePreloadsNode(t *testing.T) {
	db := newTestDB(t)
	nodes := NewNodeStore(db)
	servers := NewServerStore(db)
	ctx := context.Background()

	node, err := nodes.CreateNode(ctx, models.Node{Name: "node-1", ConnectionURL: "https://n1.example.com"})
	require.NoError(t, err)

	_, err = servers.UpsertServer(ctx, models.Server{
		ID:      "ctr-abc123",
		Name:    "smp",
		Version: "1.21",
		Type:    "vanilla",
		Port:    25565,
		Memory:  "4G",
		NodeID:  node.ID,
		UserIDs: models.StringList{"user_1"},
	})
	require.NoError(t, err)

	got, err := servers.GetServer(ctx, "ctr-abc123")
	require.NoError(t, err)
	require.NotNil(t, got.Node)
	require.Equal(t, "node-1", got.Node.Name)

	mine, err := servers.ListServersForUser(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	none, err := servers.ListServersForUser(ctx, "user_2")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSettingsStoreSingleton(t *testing.T) {
	s := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	first, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.False(t, first.OnboardingComplete)

	second, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestSettingsStoreOnboardingIsMonotonic(t *testing.T) {
	s := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	yes, no := true, false
	got, err := s.UpdateSettings(ctx, models.SettingsUpdate{OnboardingComplete: &yes})
	require.NoError(t, err)
	require.True(t, got.OnboardingComplete)

	got, err = s.UpdateSettings(ctx, models.SettingsUpdate{OnboardingComplete: &no})
	require.NoError(t, err)
	require.True(t, got.OnboardingComplete, "onboarding completion must not reset")
}

func TestSettingsStoreKeepsAPIKeyWhenOmitted(t *testing.T) {
	s := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	_, err := s.SetAPIKey(ctx, "spk_live_1")
	require.NoError(t, err)

	yes := true
	_, err = s.UpdateSettings(ctx, models.SettingsUpdate{OnboardingComplete: &yes})
	require.NoError(t, err)

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "spk_live_1", got.APIKey)
}
