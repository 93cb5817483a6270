package models

import (
	"fmt"
	"time"
)

// Port allocation bounds for node-managed game servers.
const (
	MinPort = 1024
	MaxPort = 65535
)

// Node is a registered Glide agent capable of running containerized game
// servers. Both name and connection URL are unique across the registry.
// The secret is never serialized in API responses.
type Node struct {
	ID              string    `gorm:"column:id;primaryKey" json:"_id"`
	Name            string    `gorm:"column:name;uniqueIndex" json:"name"`
	ConnectionURL   string    `gorm:"column:connection_url;uniqueIndex" json:"connectionUrl"`
	Secret          string    `gorm:"column:secret" json:"-"`
	PortAllocations IntList   `gorm:"column:port_allocations" json:"portAllocations"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Node) TableName() string { return "nodes" }

// NodeUpdate is a partial update; nil fields are left untouched.
type NodeUpdate struct {
	Name            *string `json:"name"`
	ConnectionURL   *string `json:"connectionUrl"`
	Secret          *string `json:"secret"`
	PortAllocations *[]int  `json:"portAllocations"`
}

// ValidatePortAllocations rejects any port outside [MinPort, MaxPort].
func ValidatePortAllocations(ports []int) error {
	for _, p := range ports {
		if p < MinPort || p > MaxPort {
			return fmt.Errorf("port allocations must be between %d and %d, got %d", MinPort, MaxPort, p)
		}
	}
	return nil
}
