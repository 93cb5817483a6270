package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/spire-panel/spire/glide"
	"github.com/spire-panel/spire/models"
	"github.com/spire-panel/spire/store"
)

// NodeStatus is the live view attached to a node when status is requested.
// Online is false whenever the probe failed, timed out, or was skipped.
type NodeStatus struct {
	Online bool               `json:"online"`
	Stats  *glide.HealthStats `json:"stats,omitempty"`
}

type nodeWithStatus struct {
	models.Node
	Status *NodeStatus `json:"status,omitempty"`
}

// probeTimeout resolves the per-node deadline, honoring a ?timeout=ms
// override within sane bounds.
func (s *Server) probeTimeout(c *gin.Context) time.Duration {
	if raw := c.Query("timeout"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 && ms <= 30000 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return s.HealthTimeout
}

// probeNode fetches one node's health under the poll deadline, consulting the
// status cache when enabled. A failed probe yields an offline status, never
// an error: one dead node must not fail the whole listing.
func (s *Server) probeNode(ctx context.Context, node models.Node, timeout time.Duration) *NodeStatus {
	if s.StatusCache != nil {
		if stats, err := s.StatusCache.GetStatus(ctx, node.ID); err == nil {
			return &NodeStatus{Online: true, Stats: stats}
		}
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stats, err := s.agent(node.ConnectionURL, node.Secret).Health(probeCtx)
	if err != nil {
		return &NodeStatus{Online: false}
	}
	if s.StatusCache != nil {
		if err := s.StatusCache.PutStatus(ctx, node.ID, stats); err != nil {
			s.logger.Printf("nodes: caching status for %s: %v", node.ID, err)
		}
	}
	return &NodeStatus{Online: true, Stats: stats}
}

// HandleListNodesGin lists registered nodes. With includeStatus=true every
// node is probed concurrently; the response waits for the slowest probe or
// its timeout, whichever comes first.
func (s *Server) HandleListNodesGin(c *gin.Context) {
	nodes, err := s.Nodes.ListNodes(c.Request.Context())
	if err != nil {
		respondErr(c, Internal("failed to list nodes"))
		return
	}
	if !strings.EqualFold(c.Query("includeStatus"), "true") {
		respondOK(c, nodes)
		return
	}

	timeout := s.probeTimeout(c)
	out := make([]nodeWithStatus, len(nodes))
	var wg sync.WaitGroup
	for i := range nodes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = nodeWithStatus{Node: nodes[i], Status: s.probeNode(c.Request.Context(), nodes[i], timeout)}
		}(i)
	}
	wg.Wait()
	respondOK(c, out)
}

type createNodeRequest struct {
	Name            string `json:"name" binding:"required"`
	ConnectionURL   string `json:"connectionUrl" binding:"required"`
	Secret          string `json:"secret" binding:"required"`
	PortAllocations []int  `json:"portAllocations"`
}

// HandleCreateNodeGin registers a node after verifying the agent is
// reachable with the supplied secret.
func (s *Server) HandleCreateNodeGin(c *gin.Context) {
	var req createNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, BadRequest("invalid node payload").WithDetails(err.Error()))
		return
	}

	probeCtx, cancel := context.WithTimeout(c.Request.Context(), s.HealthTimeout)
	defer cancel()
	agent := s.agent(req.ConnectionURL, req.Secret)
	if _, err := agent.Health(probeCtx); err != nil {
		if err := agent.Ping(probeCtx); err != nil {
			respondErr(c, BadRequest("node is not reachable with the given connection url and secret"))
			return
		}
	}

	node, err := s.Nodes.CreateNode(c.Request.Context(), models.Node{
		Name:            req.Name,
		ConnectionURL:   req.ConnectionURL,
		Secret:          req.Secret,
		PortAllocations: models.IntList(req.PortAllocations),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateNode):
			respondErr(c, Conflict("a node with that name or connection url already exists"))
		case errors.Is(err, gorm.ErrInvalidData):
			respondErr(c, BadRequest("invalid node payload"))
		default:
			respondErr(c, BadRequest(err.Error()))
		}
		return
	}
	respondCreated(c, node)
}

// HandleGetNodeGin returns one node, with live status when requested.
func (s *Server) HandleGetNodeGin(c *gin.Context) {
	node, err := s.Nodes.GetNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondErr(c, NotFound("node not found"))
			return
		}
		respondErr(c, Internal("failed to load node"))
		return
	}
	if strings.EqualFold(c.Query("includeStatus"), "true") {
		respondOK(c, nodeWithStatus{Node: *node, Status: s.probeNode(c.Request.Context(), *node, s.probeTimeout(c))})
		return
	}
	respondOK(c, node)
}

// HandlePatchNodeGin applies a partial update. A changed connection URL or
// secret invalidates any cached status so stale health never masks a broken
// edit.
func (s *Server) HandlePatchNodeGin(c *gin.Context) {
	var update models.NodeUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondErr(c, BadRequest("invalid node payload").WithDetails(err.Error()))
		return
	}
	node, err := s.Nodes.UpdateNode(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondErr(c, NotFound("node not found"))
		case errors.Is(err, store.ErrDuplicateNode):
			respondErr(c, Conflict("a node with that name or connection url already exists"))
		case errors.Is(err, gorm.ErrInvalidData):
			respondErr(c, BadRequest("invalid node payload"))
		default:
			respondErr(c, BadRequest(err.Error()))
		}
		return
	}
	if s.StatusCache != nil && (update.ConnectionURL != nil || update.Secret != nil) {
		if err := s.StatusCache.InvalidateStatus(c.Request.Context(), node.ID); err != nil {
			s.logger.Printf("nodes: invalidating status for %s: %v", node.ID, err)
		}
	}
	respondOK(c, node)
}
