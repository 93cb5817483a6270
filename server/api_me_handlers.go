package server

import (
	"github.com/gin-gonic/gin"

	"github.com/spire-panel/spire/permission"
)

// HandleGetMeGin returns the authenticated user with their flattened
// permission set for client-side gating.
func (s *Server) HandleGetMeGin(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		respondErr(c, Unauthorized("unauthorized"))
		return
	}
	grants, err := s.Roles.Grants(c.Request.Context())
	if err != nil {
		respondErr(c, Internal("failed to load roles"))
		return
	}
	perms := permission.EffectivePermissions(grants, user.Role)
	if perms == nil {
		perms = []string{}
	}
	respondOK(c, gin.H{
		"user":        user,
		"permissions": perms,
	})
}
