package server

import (
	"github.com/gin-gonic/gin"

	"github.com/spire-panel/spire/permission"
)

// RequirementFunc builds the access requirement for one request, so routes
// can scope permissions to path parameters.
type RequirementFunc func(c *gin.Context) permission.Requirement

// requireAll declares a static AND requirement.
func requireAll(perms ...string) RequirementFunc {
	return func(*gin.Context) permission.Requirement {
		return permission.RequireAll(perms...)
	}
}

// requireAny declares a static OR requirement.
func requireAny(perms ...string) RequirementFunc {
	return func(*gin.Context) permission.Requirement {
		return permission.RequireAny(perms...)
	}
}

// RequireAuthorization evaluates the route's requirement against the stored
// role set. Every failure resolves to a 401 with the standard envelope; the
// check never distinguishes "no such role" from "denied".
func (s *Server) RequireAuthorization(build RequirementFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := currentRole(c)
		grants, err := s.Roles.Grants(c.Request.Context())
		if err != nil {
			s.logger.Printf("authz: loading roles: %v", err)
			respondErr(c, Unauthorized("unauthorized"))
			return
		}
		if !permission.Decide(grants, role, role, build(c)) {
			respondErr(c, Unauthorized("unauthorized"))
			return
		}
		c.Next()
	}
}
