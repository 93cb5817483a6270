package server

import (
	"github.com/gin-gonic/gin"

	"github.com/spire-panel/spire/permission"
)

// scopedAny builds an OR requirement from plain tokens plus the per-resource
// variants of scoped, bound to the route's id parameter.
func scopedAny(idParam string, plain []string, scoped ...string) RequirementFunc {
	return func(c *gin.Context) permission.Requirement {
		id := c.Param(idParam)
		perms := make([]string, 0, len(plain)+len(scoped)*2)
		perms = append(perms, plain...)
		for _, base := range scoped {
			perms = append(perms, base)
			if id != "" {
				perms = append(perms, permission.Scoped(base, id))
			}
		}
		return permission.RequireAny(perms...)
	}
}

// NewGinEngine builds the panel's router. Every /api/v1 route sits behind
// TokenMiddleware; per-route requirements are declared inline so the access
// table reads off this file.
func NewGinEngine(s *Server) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.CustomRecovery(recoveryHandler))

	api := r.Group("/api/v1")
	api.Use(s.TokenMiddleware())

	api.GET("/me", s.RequireAuthorization(requireAll(permission.ProfileSelf)), s.HandleGetMeGin)

	// Nodes
	api.GET("/nodes", s.RequireAuthorization(requireAny(permission.NodesRead, permission.NodesManage)), s.HandleListNodesGin)
	api.POST("/nodes", s.RequireAuthorization(requireAny(permission.NodesWrite, permission.NodesManage)), s.HandleCreateNodeGin)
	api.GET("/nodes/:id", s.RequireAuthorization(requireAny(permission.NodesRead, permission.NodesManage)), s.HandleGetNodeGin)
	api.PATCH("/nodes/:id", s.RequireAuthorization(requireAny(permission.NodesWrite, permission.NodesManage)), s.HandlePatchNodeGin)

	// Roles
	api.GET("/roles", s.RequireAuthorization(requireAll(permission.RolesRead)), s.HandleListRolesGin)
	api.POST("/roles", s.RequireAuthorization(requireAll(permission.RolesWrite)), s.HandleUpsertRoleGin)
	api.GET("/roles/:name", s.RequireAuthorization(requireAll(permission.RolesRead)), s.HandleGetRoleGin)

	// Servers. Reads and lifecycle admit the self scope and per-resource
	// grants; the handlers narrow visibility for callers without
	// fleet-wide read.
	selfScope := []string{permission.ServersManage, permission.ServersSelf}
	api.GET("/servers", s.RequireAuthorization(requireAny(permission.ServersRead, permission.ServersManage, permission.ServersSelf)), s.HandleListServersGin)
	api.POST("/servers", s.RequireAuthorization(requireAny(permission.ServersCreate, permission.ServersManage)), s.HandleCreateServerGin)
	api.GET("/servers/:id", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersRead)), s.HandleGetServerGin)
	api.DELETE("/servers/:id", s.RequireAuthorization(scopedAny("id", []string{permission.ServersManage}, permission.ServersDelete)), s.HandleDeleteServerGin)
	api.POST("/servers/:id/start", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersStart)), s.HandleStartServerGin)
	api.POST("/servers/:id/stop", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersStop)), s.HandleStopServerGin)
	api.POST("/servers/:id/restart", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersRestart)), s.HandleRestartServerGin)
	api.POST("/servers/:id/command", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersRcon)), s.HandleServerCommandGin)
	api.GET("/servers/:id/files", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersFiles, permission.ServersFilesRead)), s.HandleListServerFilesGin)
	api.GET("/servers/:id/logs", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersFiles, permission.ServersFilesRead)), s.HandleServerLogsGin)
	api.GET("/servers/:id/console", s.RequireAuthorization(scopedAny("id", selfScope, permission.ServersRcon)), s.HandleServerConsoleGin)

	// Settings
	api.GET("/settings", s.RequireAuthorization(requireAll(permission.SettingsRead)), s.HandleGetSettingsGin)
	api.PUT("/settings", s.RequireAuthorization(requireAll(permission.SettingsWrite)), s.HandleUpdateSettingsGin)
	api.POST("/settings/api-key", s.RequireAuthorization(requireAll(permission.SettingsWrite)), s.HandleRotateAPIKeyGin)

	// Users
	api.GET("/users", s.RequireAuthorization(requireAll(permission.UsersRead)), s.HandleListUsersGin)
	api.GET("/users/:id", s.RequireAuthorization(requireAll(permission.UsersRead)), s.HandleGetUserGin)
	api.PATCH("/users/:id/roles", s.RequireAuthorization(scopedAny("id", nil, permission.UsersWrite)), s.HandlePatchUserRoleGin)

	return r
}
