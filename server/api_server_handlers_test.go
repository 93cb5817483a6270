package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/require"

	"github.com/spire-panel/spire/glide"
	"github.com/spire-panel/spire/identity"
	"github.com/spire-panel/spire/models"
)

func (env *testEnv) seedNode(t *testing.T, name string, ports ...int) *models.Node {
	t.Helper()
	node, err := env.srv.Nodes.CreateNode(context.Background(), models.Node{
		Name:            name,
		ConnectionURL:   "https://" + name + ".example.com",
		Secret:          "s3cret",
		PortAllocations: models.IntList(ports),
	})
	require.NoError(t, err)
	return node
}

func TestCreateServerHappyPath(t *testing.T) {
	env := newTestEnv(t)
	node := env.seedNode(t, "node-1", 25565)

	obj := env.asAdmin().POST("/api/v1/servers").
		WithJSON(map[string]any{
			"name":    "smp",
			"version": "1.21",
			"type":    "vanilla",
			"port":    25565,
			"memory":  "4G",
			"nodeId":  node.ID,
			"userIds": []string{"user_plain"},
		}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object()
	obj.HasValue("success", true)
	data := obj.Value("data").Object()
	data.HasValue("_id", "ctr-smp")
	data.HasValue("nodeId", node.ID)

	// Record is persisted under the agent-assigned container id.
	sv, err := env.srv.Servers.GetServer(context.Background(), "ctr-smp")
	require.NoError(t, err)
	require.Equal(t, "smp", sv.Name)
}

func TestCreateServerRejectsUnallocatedPort(t *testing.T) {
	env := newTestEnv(t)
	node := env.seedNode(t, "node-1", 25565)

	env.asAdmin().POST("/api/v1/servers").
		WithJSON(map[string]any{
			"name":    "smp",
			"version": "1.21",
			"type":    "vanilla",
			"port":    30000,
			"memory":  "4G",
			"nodeId":  node.ID,
		}).
		Expect().
		Status(http.StatusBadRequest)
}

func TestCreateServerCompensatesFailedUpsert(t *testing.T) {
	// The agent provisions a container but reports no id, so the local
	// upsert is rejected. The handler must delete the remote container
	// exactly once and surface a failure.
	env := newTestEnv(t)
	node := env.seedNode(t, "node-1", 25565)
	env.agent.createFn = func(ctx context.Context, req glide.CreateContainerRequest) (*glide.Container, error) {
		return &glide.Container{ID: ""}, nil
	}

	env.asAdmin().POST("/api/v1/servers").
		WithJSON(map[string]any{
			"name":    "smp",
			"version": "1.21",
			"type":    "vanilla",
			"port":    25565,
			"memory":  "4G",
			"nodeId":  node.ID,
		}).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		HasValue("success", false)

	require.Len(t, env.agent.deletedIDs(), 1, "expected exactly one compensating delete")

	servers, err := env.srv.Servers.ListServers(context.Background())
	require.NoError(t, err)
	require.Empty(t, servers, "no record may survive a failed provisioning")
}

func TestServerSelfScope(t *testing.T) {
	env := newTestEnv(t)
	node := env.seedNode(t, "node-1")

	ctx := context.Background()
	_, err := env.srv.Servers.UpsertServer(ctx, models.Server{
		ID: "ctr-mine", Name: "mine", NodeID: node.ID,
		UserIDs: models.StringList{"user_plain"},
	})
	require.NoError(t, err)
	_, err = env.srv.Servers.UpsertServer(ctx, models.Server{
		ID: "ctr-other", Name: "other", NodeID: node.ID,
	})
	require.NoError(t, err)

	// The plain user only sees attached servers.
	arr := env.asUser().GET("/api/v1/servers").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Array()
	arr.Length().IsEqual(1)
	arr.Value(0).Object().HasValue("_id", "ctr-mine")

	env.asUser().GET("/api/v1/servers/ctr-mine").
		Expect().Status(http.StatusOK)
	// An unattached server is indistinguishable from a missing one.
	env.asUser().GET("/api/v1/servers/ctr-other").
		Expect().Status(http.StatusNotFound)

	// The admin sees the whole fleet.
	env.asAdmin().GET("/api/v1/servers").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Array().
		Length().IsEqual(2)
}

func TestServerScopedReadGrant(t *testing.T) {
	// A role carrying only a per-resource grant reads that one server
	// without being attached to it.
	env := newTestEnv(t)
	node := env.seedNode(t, "node-1")

	ctx := context.Background()
	for _, id := range []string{"ctr-mine", "ctr-other"} {
		_, err := env.srv.Servers.UpsertServer(ctx, models.Server{
			ID: id, Name: id, NodeID: node.ID,
		})
		require.NoError(t, err)
	}

	_, err := env.srv.Roles.UpsertRole(ctx, models.Role{
		Name: "viewer", Order: 0,
		Permissions: models.StringList{"profile:self", "servers:read:ctr-mine"},
	})
	require.NoError(t, err)
	env.provider.PutUser(identity.User{ID: "user_viewer", Role: "viewer"})
	env.provider.PutSession("sess-viewer", "user_viewer")

	asViewer := env.e.Builder(func(req *httpexpect.Request) {
		req.WithHeader("Authorization", "Bearer sess-viewer")
	})
	asViewer.GET("/api/v1/servers/ctr-mine").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("_id", "ctr-mine")
	asViewer.GET("/api/v1/servers/ctr-other").
		Expect().Status(http.StatusUnauthorized)
}

func TestServerLifecycleActions(t *testing.T) {
	env := newTestEnv(t)
	node := env.seedNode(t, "node-1")
	_, err := env.srv.Servers.UpsertServer(context.Background(), models.Server{
		ID: "ctr-smp", Name: "smp", NodeID: node.ID,
	})
	require.NoError(t, err)

	env.asAdmin().POST("/api/v1/servers/ctr-smp/start").
		Expect().Status(http.StatusOK)
	env.asAdmin().POST("/api/v1/servers/ctr-smp/stop").
		Expect().Status(http.StatusOK)
	require.Equal(t, []string{"ctr-smp"}, env.agent.started)
	require.Equal(t, []string{"ctr-smp"}, env.agent.stopped)

	env.asAdmin().POST("/api/v1/servers/ctr-smp/command").
		WithJSON(map[string]any{"command": "list"}).
		Expect().Status(http.StatusOK)

	env.asAdmin().GET("/api/v1/servers/ctr-smp/files").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Array().
		Value(0).Object().HasValue("name", "server.properties")

	env.asAdmin().GET("/api/v1/servers/ctr-smp/logs").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Array().
		Length().IsEqual(1)
}

func TestDeleteServerRemovesContainerThenRecord(t *testing.T) {
	env := newTestEnv(t)
	node := env.seedNode(t, "node-1")
	_, err := env.srv.Servers.UpsertServer(context.Background(), models.Server{
		ID: "ctr-smp", Name: "smp", NodeID: node.ID,
	})
	require.NoError(t, err)

	env.asAdmin().DELETE("/api/v1/servers/ctr-smp").
		Expect().Status(http.StatusOK)

	require.Equal(t, []string{"ctr-smp"}, env.agent.deletedIDs())
	servers, err := env.srv.Servers.ListServers(context.Background())
	require.NoError(t, err)
	require.Empty(t, servers)
}
