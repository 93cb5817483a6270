package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/spire-panel/spire/models"
	"github.com/spire-panel/spire/store"
)

// HandleListRolesGin lists all roles ordered by rank.
func (s *Server) HandleListRolesGin(c *gin.Context) {
	roles, err := s.Roles.ListRoles(c.Request.Context())
	if err != nil {
		respondErr(c, Internal("failed to list roles"))
		return
	}
	respondOK(c, roles)
}

type upsertRoleRequest struct {
	Name            string   `json:"name" binding:"required"`
	Order           int      `json:"order"`
	Permissions     []string `json:"permissions"`
	InheritChildren bool     `json:"inheritChildren"`
}

// HandleUpsertRoleGin creates or replaces a role by name. Unknown permission
// tokens are rejected before anything is written.
func (s *Server) HandleUpsertRoleGin(c *gin.Context) {
	var req upsertRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, BadRequest("invalid role payload").WithDetails(err.Error()))
		return
	}
	role, err := s.Roles.UpsertRole(c.Request.Context(), models.Role{
		Name:            req.Name,
		Order:           req.Order,
		Permissions:     models.StringList(req.Permissions),
		InheritChildren: req.InheritChildren,
	})
	if err != nil {
		var invalid *store.InvalidPermissionError
		switch {
		case errors.As(err, &invalid):
			respondErr(c, BadRequest("unknown permission").WithDetails(invalid.Token))
		case errors.Is(err, gorm.ErrInvalidData):
			respondErr(c, BadRequest("invalid role payload"))
		default:
			respondErr(c, Internal("failed to save role"))
		}
		return
	}
	respondOK(c, role)
}

// HandleGetRoleGin returns one role by name.
func (s *Server) HandleGetRoleGin(c *gin.Context) {
	role, err := s.Roles.GetRole(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, NotFound("role not found"))
			return
		}
		respondErr(c, Internal("failed to load role"))
		return
	}
	respondOK(c, role)
}
