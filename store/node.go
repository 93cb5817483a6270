package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/spire-panel/spire/models"
)

// ErrDuplicateNode means a node with the same name or connection URL already
// exists.
var ErrDuplicateNode = errors.New("store: node name or connection url already registered")

type NodeStore struct{ DB *gorm.DB }

func NewNodeStore(db *gorm.DB) *NodeStore { return &NodeStore{DB: db} }

// CreateNode registers a node. Name and connection URL must be unique across
// the fleet; port allocations must fall in the unprivileged range.
func (s *NodeStore) CreateNode(ctx context.Context, node models.Node) (*models.Node, error) {
	node.Name = strings.TrimSpace(node.Name)
	node.ConnectionURL = strings.TrimSpace(node.ConnectionURL)
	if node.Name == "" || node.ConnectionURL == "" {
		return nil, gorm.ErrInvalidData
	}
	if err := models.ValidatePortAllocations(node.PortAllocations); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Node{}).
			Where("name = ? OR connection_url = ?", node.Name, node.ConnectionURL).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateNode
		}
		if node.ID == "" {
			node.ID = models.NewID()
		}
		node.CreatedAt = time.Now().UTC()
		return tx.Create(&node).Error
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *NodeStore) ListNodes(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&nodes).Error
	return nodes, err
}

func (s *NodeStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	var node models.Node
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&node).Error; err != nil {
		return nil, err
	}
	return &node, nil
}

// UpdateNode applies a partial update. Uniqueness of name and connection URL
// is re-checked against other nodes; port allocations are re-validated when
// present.
func (s *NodeStore) UpdateNode(ctx context.Context, id string, updates models.NodeUpdate) (*models.Node, error) {
	var node models.Node
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&node).Error; err != nil {
			return err
		}
		fields := map[string]interface{}{}
		if updates.Name != nil {
			name := strings.TrimSpace(*updates.Name)
			if name == "" {
				return gorm.ErrInvalidData
			}
			fields["name"] = name
		}
		if updates.ConnectionURL != nil {
			u := strings.TrimSpace(*updates.ConnectionURL)
			if u == "" {
				return gorm.ErrInvalidData
			}
			fields["connection_url"] = u
		}
		if updates.Secret != nil {
			fields["secret"] = *updates.Secret
		}
		if updates.PortAllocations != nil {
			if err := models.ValidatePortAllocations(*updates.PortAllocations); err != nil {
				return err
			}
			fields["port_allocations"] = models.IntList(*updates.PortAllocations)
		}
		if len(fields) == 0 {
			return nil
		}
		if name, ok := fields["name"]; ok {
			var count int64
			if err := tx.Model(&models.Node{}).Where("name = ? AND id <> ?", name, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateNode
			}
		}
		if u, ok := fields["connection_url"]; ok {
			var count int64
			if err := tx.Model(&models.Node{}).Where("connection_url = ? AND id <> ?", u, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrDuplicateNode
			}
		}
		if err := tx.Model(&models.Node{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&node).Error
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *NodeStore) DeleteNode(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Node{}).Error
}
