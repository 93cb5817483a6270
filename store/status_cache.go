package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/spire-panel/spire/glide"
)

// ErrStatusNotCached means no fresh health snapshot exists for the node.
var ErrStatusNotCached = errors.New("store: node status not cached")

// NodeStatusCache keeps recent node health snapshots in Valkey so repeated
// dashboard loads do not re-probe every agent. Entries expire on their own;
// a miss just means the caller probes the node directly.
type NodeStatusCache struct {
	Client valkey.Client
	TTL    time.Duration
}

func NewNodeStatusCache(client valkey.Client, ttl time.Duration) *NodeStatusCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &NodeStatusCache{Client: client, TTL: ttl}
}

func statusKey(nodeID string) string { return "spire:node-status:" + nodeID }

// PutStatus stores a health snapshot with the cache TTL.
func (c *NodeStatusCache) PutStatus(ctx context.Context, nodeID string, stats *glide.HealthStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	cmd := c.Client.B().Set().Key(statusKey(nodeID)).Value(string(payload)).
		Ex(c.TTL).Build()
	return c.Client.Do(ctx, cmd).Error()
}

// GetStatus returns the cached snapshot or ErrStatusNotCached.
func (c *NodeStatusCache) GetStatus(ctx context.Context, nodeID string) (*glide.HealthStats, error) {
	res := c.Client.Do(ctx, c.Client.B().Get().Key(statusKey(nodeID)).Build())
	payload, err := res.AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrStatusNotCached
		}
		return nil, err
	}
	var stats glide.HealthStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// InvalidateStatus drops a node's snapshot, e.g. after its connection URL
// changes.
func (c *NodeStatusCache) InvalidateStatus(ctx context.Context, nodeID string) error {
	return c.Client.Do(ctx, c.Client.B().Del().Key(statusKey(nodeID)).Build()).Error()
}
