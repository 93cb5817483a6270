package server

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/spire-panel/spire/glide"
	"github.com/spire-panel/spire/models"
	"github.com/spire-panel/spire/permission"
	"github.com/spire-panel/spire/store"
)

type serverWithStatus struct {
	models.Server
	Status *glide.ContainerStatus `json:"status,omitempty"`
}

// canReadAllServers reports whether the current role passes the fleet-wide
// read requirement. Callers falling short see only their own servers.
func (s *Server) canReadAllServers(c *gin.Context) bool {
	grants, err := s.Roles.Grants(c.Request.Context())
	if err != nil {
		return false
	}
	role := currentRole(c)
	return permission.Decide(grants, role, role, permission.RequireAny(
		permission.ServersRead, permission.ServersManage,
	))
}

// HandleListServersGin lists servers. Users without fleet-wide read see only
// servers they are attached to. With includeStatus=true every server's
// container is probed concurrently under the health timeout.
func (s *Server) HandleListServersGin(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		servers []models.Server
		err     error
	)
	if s.canReadAllServers(c) {
		servers, err = s.Servers.ListServers(ctx)
	} else {
		user := currentUser(c)
		if user == nil {
			respondErr(c, Unauthorized("unauthorized"))
			return
		}
		servers, err = s.Servers.ListServersForUser(ctx, user.ID)
	}
	if err != nil {
		respondErr(c, Internal("failed to list servers"))
		return
	}
	if !strings.EqualFold(c.Query("includeStatus"), "true") {
		respondOK(c, servers)
		return
	}

	out := make([]serverWithStatus, len(servers))
	var wg sync.WaitGroup
	for i := range servers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = serverWithStatus{Server: servers[i], Status: s.probeServer(ctx, servers[i])}
		}(i)
	}
	wg.Wait()
	respondOK(c, out)
}

// probeServer fetches one container's status; nil means the node was
// unreachable or the server has no node attached.
func (s *Server) probeServer(ctx context.Context, sv models.Server) *glide.ContainerStatus {
	if sv.Node == nil {
		return nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.HealthTimeout)
	defer cancel()
	st, err := s.agent(sv.Node.ConnectionURL, sv.Node.Secret).ContainerStatus(probeCtx, sv.ID)
	if err != nil {
		return nil
	}
	return st
}

type createServerRequest struct {
	Name      string   `json:"name" binding:"required"`
	Version   string   `json:"version" binding:"required"`
	Type      string   `json:"type" binding:"required"`
	Port      int      `json:"port" binding:"required"`
	Memory    string   `json:"memory" binding:"required"`
	ModpackID string   `json:"modpackId"`
	NodeID    string   `json:"nodeId" binding:"required"`
	UserIDs   []string `json:"userIds"`
}

// HandleCreateServerGin provisions a container on the chosen node and
// records it. If the local upsert fails after the container was created, the
// container is deleted again so the node is not left running an orphan.
func (s *Server) HandleCreateServerGin(c *gin.Context) {
	var req createServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, BadRequest("invalid server payload").WithDetails(err.Error()))
		return
	}
	ctx := c.Request.Context()

	node, err := s.Nodes.GetNode(ctx, req.NodeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, NotFound("node not found"))
			return
		}
		respondErr(c, Internal("failed to load node"))
		return
	}
	if len(node.PortAllocations) > 0 {
		allowed := false
		for _, p := range node.PortAllocations {
			if p == req.Port {
				allowed = true
				break
			}
		}
		if !allowed {
			respondErr(c, BadRequest("port is not allocated on the chosen node"))
			return
		}
	}

	agent := s.agent(node.ConnectionURL, node.Secret)
	container, err := agent.CreateContainer(ctx, glide.CreateContainerRequest{
		Name:      req.Name,
		Version:   req.Version,
		Type:      req.Type,
		Port:      req.Port,
		Memory:    req.Memory,
		ModpackID: req.ModpackID,
	})
	if err != nil {
		var agentErr *glide.AgentError
		if errors.As(err, &agentErr) {
			respondErr(c, NewHTTPError(agentErr.Status, agentErr.Message))
			return
		}
		respondErr(c, Internal("node failed to create container"))
		return
	}

	created, err := s.Servers.UpsertServer(ctx, models.Server{
		ID:        container.ID,
		Name:      req.Name,
		Version:   req.Version,
		Type:      req.Type,
		Port:      req.Port,
		Memory:    req.Memory,
		ModpackID: req.ModpackID,
		NodeID:    node.ID,
		UserIDs:   models.StringList(req.UserIDs),
	})
	if err != nil {
		// Unwind the remote container so the failure leaves no orphan.
		if delErr := agent.DeleteContainer(ctx, container.ID); delErr != nil {
			s.logger.Printf("servers: compensating delete of %s failed: %v", container.ID, delErr)
		}
		if errors.Is(err, store.ErrMissingServerID) {
			respondErr(c, BadRequest("node returned no container id"))
			return
		}
		respondErr(c, Internal("failed to record server"))
		return
	}
	created.Node = node
	respondCreated(c, created)
}

// canReadServer reports whether the current role may read one server without
// being attached to it, either fleet-wide or through a per-resource grant.
func (s *Server) canReadServer(c *gin.Context, id string) bool {
	grants, err := s.Roles.Grants(c.Request.Context())
	if err != nil {
		return false
	}
	role := currentRole(c)
	return permission.Decide(grants, role, role, permission.RequireAny(
		permission.ServersRead,
		permission.ServersManage,
		permission.Scoped(permission.ServersRead, id),
	))
}

// loadServer fetches a server, enforcing the self scope for users without
// fleet-wide or per-resource read.
func (s *Server) loadServer(c *gin.Context) (*models.Server, bool) {
	sv, err := s.Servers.GetServer(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, NotFound("server not found"))
			return nil, false
		}
		respondErr(c, Internal("failed to load server"))
		return nil, false
	}
	if !s.canReadServer(c, sv.ID) {
		user := currentUser(c)
		attached := false
		if user != nil {
			for _, id := range sv.UserIDs {
				if id == user.ID {
					attached = true
					break
				}
			}
		}
		if !attached {
			// Indistinguishable from a missing server on purpose.
			respondErr(c, NotFound("server not found"))
			return nil, false
		}
	}
	return sv, true
}

// HandleGetServerGin returns one server, with container status when
// requested.
func (s *Server) HandleGetServerGin(c *gin.Context) {
	sv, ok := s.loadServer(c)
	if !ok {
		return
	}
	respondOK(c, serverWithStatus{Server: *sv, Status: s.probeServer(c.Request.Context(), *sv)})
}

// HandleDeleteServerGin removes the container from its node first, then the
// local record. The record survives a failed remote delete so the orphan
// stays visible.
func (s *Server) HandleDeleteServerGin(c *gin.Context) {
	sv, ok := s.loadServer(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if sv.Node != nil {
		if err := s.agent(sv.Node.ConnectionURL, sv.Node.Secret).DeleteContainer(ctx, sv.ID); err != nil {
			var agentErr *glide.AgentError
			if errors.As(err, &agentErr) {
				respondErr(c, NewHTTPError(agentErr.Status, agentErr.Message))
				return
			}
			respondErr(c, Internal("node failed to delete container"))
			return
		}
	}
	if err := s.Servers.DeleteServer(ctx, sv.ID); err != nil {
		respondErr(c, Internal("failed to delete server record"))
		return
	}
	respondOK(c, gin.H{"deleted": sv.ID})
}

// containerAction runs one lifecycle action against the server's node.
func (s *Server) containerAction(c *gin.Context, action func(ctx context.Context, agent AgentClient, id string) error) {
	sv, ok := s.loadServer(c)
	if !ok {
		return
	}
	if sv.Node == nil {
		respondErr(c, Internal("server has no node attached"))
		return
	}
	agent := s.agent(sv.Node.ConnectionURL, sv.Node.Secret)
	if err := action(c.Request.Context(), agent, sv.ID); err != nil {
		var agentErr *glide.AgentError
		if errors.As(err, &agentErr) {
			respondErr(c, NewHTTPError(agentErr.Status, agentErr.Message))
			return
		}
		respondErr(c, Internal("node request failed"))
		return
	}
	respondOK(c, gin.H{"id": sv.ID})
}

func (s *Server) HandleStartServerGin(c *gin.Context) {
	s.containerAction(c, func(ctx context.Context, agent AgentClient, id string) error {
		return agent.StartContainer(ctx, id)
	})
}

func (s *Server) HandleStopServerGin(c *gin.Context) {
	s.containerAction(c, func(ctx context.Context, agent AgentClient, id string) error {
		return agent.StopContainer(ctx, id)
	})
}

func (s *Server) HandleRestartServerGin(c *gin.Context) {
	s.containerAction(c, func(ctx context.Context, agent AgentClient, id string) error {
		return agent.RestartContainer(ctx, id)
	})
}

type commandRequest struct {
	Command string `json:"command" binding:"required"`
}

// HandleServerCommandGin runs one console command in the container.
func (s *Server) HandleServerCommandGin(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, BadRequest("invalid command payload").WithDetails(err.Error()))
		return
	}
	sv, ok := s.loadServer(c)
	if !ok {
		return
	}
	if sv.Node == nil {
		respondErr(c, Internal("server has no node attached"))
		return
	}
	out, err := s.agent(sv.Node.ConnectionURL, sv.Node.Secret).SendCommand(c.Request.Context(), sv.ID, req.Command)
	if err != nil {
		var agentErr *glide.AgentError
		if errors.As(err, &agentErr) {
			respondErr(c, NewHTTPError(agentErr.Status, agentErr.Message))
			return
		}
		respondErr(c, Internal("node request failed"))
		return
	}
	respondOK(c, gin.H{"output": out})
}

// HandleListServerFilesGin lists the container's data directory.
func (s *Server) HandleListServerFilesGin(c *gin.Context) {
	sv, ok := s.loadServer(c)
	if !ok {
		return
	}
	if sv.Node == nil {
		respondErr(c, Internal("server has no node attached"))
		return
	}
	entries, err := s.agent(sv.Node.ConnectionURL, sv.Node.Secret).ListFiles(c.Request.Context(), sv.ID, c.Query("path"))
	if err != nil {
		var agentErr *glide.AgentError
		if errors.As(err, &agentErr) {
			respondErr(c, NewHTTPError(agentErr.Status, agentErr.Message))
			return
		}
		respondErr(c, Internal("node request failed"))
		return
	}
	respondOK(c, entries)
}

// HandleServerLogsGin returns the container's recent log lines.
func (s *Server) HandleServerLogsGin(c *gin.Context) {
	sv, ok := s.loadServer(c)
	if !ok {
		return
	}
	if sv.Node == nil {
		respondErr(c, Internal("server has no node attached"))
		return
	}
	lines, err := s.agent(sv.Node.ConnectionURL, sv.Node.Secret).Logs(c.Request.Context(), sv.ID, 200)
	if err != nil {
		var agentErr *glide.AgentError
		if errors.As(err, &agentErr) {
			respondErr(c, NewHTTPError(agentErr.Status, agentErr.Message))
			return
		}
		respondErr(c, Internal("node request failed"))
		return
	}
	respondOK(c, lines)
}
