package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListUsersRequiresPermission(t *testing.T) {
	env := newTestEnv(t)

	env.asUser().GET("/api/v1/users").
		Expect().Status(http.StatusUnauthorized)

	env.asAdmin().GET("/api/v1/users").
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Array().
		Length().IsEqual(2)
}

func TestPatchUserRoleValidatesRoleExists(t *testing.T) {
	env := newTestEnv(t)

	env.asAdmin().PATCH("/api/v1/users/user_plain/roles").
		WithJSON(map[string]any{"role": "ghost"}).
		Expect().Status(http.StatusBadRequest)

	env.asAdmin().PATCH("/api/v1/users/user_plain/roles").
		WithJSON(map[string]any{"role": "admin"}).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("data").Object().
		HasValue("role", "admin")

	u, err := env.provider.GetUser(context.Background(), "user_plain")
	require.NoError(t, err)
	require.Equal(t, "admin", u.Role)

	env.asAdmin().PATCH("/api/v1/users/ghost/roles").
		WithJSON(map[string]any{"role": "admin"}).
		Expect().Status(http.StatusNotFound)
}
