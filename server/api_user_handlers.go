package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/spire-panel/spire/identity"
)

// HandleListUsersGin lists every user known to the identity provider.
func (s *Server) HandleListUsersGin(c *gin.Context) {
	users, err := s.Identity.ListUsers(c.Request.Context())
	if err != nil {
		respondErr(c, Internal("failed to list users"))
		return
	}
	respondOK(c, users)
}

// HandleGetUserGin returns one user by id.
func (s *Server) HandleGetUserGin(c *gin.Context) {
	user, err := s.Identity.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondErr(c, NotFound("user not found"))
			return
		}
		respondErr(c, Internal("failed to load user"))
		return
	}
	respondOK(c, user)
}

type patchUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// HandlePatchUserRoleGin assigns a stored role to a user. The role must
// exist locally before it is written to the identity provider.
func (s *Server) HandlePatchUserRoleGin(c *gin.Context) {
	var req patchUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, BadRequest("invalid role payload").WithDetails(err.Error()))
		return
	}
	exists, err := s.Roles.RoleExists(c.Request.Context(), req.Role)
	if err != nil {
		respondErr(c, Internal("failed to check role"))
		return
	}
	if !exists {
		respondErr(c, BadRequest("role does not exist"))
		return
	}
	user, err := s.Identity.UpdateUserRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondErr(c, NotFound("user not found"))
			return
		}
		respondErr(c, Internal("failed to update user role"))
		return
	}
	respondOK(c, user)
}
