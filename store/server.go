package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spire-panel/spire/models"
)

// ErrMissingServerID means the upsert was attempted without a container id,
// which is the server's primary key.
var ErrMissingServerID = errors.New("store: server id (container id) is required")

type ServerStore struct{ DB *gorm.DB }

func NewServerStore(db *gorm.DB) *ServerStore { return &ServerStore{DB: db} }

// UpsertServer records a provisioned game server. The id is the container id
// assigned by the node's agent; an upsert without one is rejected so the
// caller can unwind the remote provisioning.
func (s *ServerStore) UpsertServer(ctx context.Context, server models.Server) (*models.Server, error) {
	if server.ID == "" {
		return nil, ErrMissingServerID
	}
	if server.CreatedAt.IsZero() {
		server.CreatedAt = time.Now().UTC()
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "version", "type", "port", "memory", "modpack_id", "node_id", "user_ids", "updated_at",
		}),
	}).Create(&server).Error
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *ServerStore) ListServers(ctx context.Context) ([]models.Server, error) {
	var servers []models.Server
	err := s.DB.WithContext(ctx).Preload("Node").Order("name ASC").Find(&servers).Error
	return servers, err
}

// ListServersForUser returns the servers a user is attached to.
func (s *ServerStore) ListServersForUser(ctx context.Context, userID string) ([]models.Server, error) {
	servers, err := s.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	out := servers[:0]
	for _, sv := range servers {
		for _, id := range sv.UserIDs {
			if id == userID {
				out = append(out, sv)
				break
			}
		}
	}
	return out, nil
}

func (s *ServerStore) GetServer(ctx context.Context, id string) (*models.Server, error) {
	var server models.Server
	if err := s.DB.WithContext(ctx).Preload("Node").Where("id = ?", id).First(&server).Error; err != nil {
		return nil, err
	}
	return &server, nil
}

func (s *ServerStore) DeleteServer(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Server{}).Error
}
