package models

import "time"

// Server is a managed game-server instance running inside a container on a
// node. The ID is the remote container id assigned by the Glide agent, not
// generated locally: the record only exists after the agent confirmed
// container creation.
type Server struct {
	ID        string     `gorm:"column:id;primaryKey" json:"_id"`
	Name      string     `gorm:"column:name" json:"name"`
	Version   string     `gorm:"column:version" json:"version"`
	Type      string     `gorm:"column:type" json:"type"`
	Port      int        `gorm:"column:port" json:"port"`
	Memory    string     `gorm:"column:memory" json:"memory"`
	ModpackID string     `gorm:"column:modpack_id" json:"modpackId,omitempty"`
	NodeID    string     `gorm:"column:node_id;index" json:"nodeId"`
	Node      *Node      `gorm:"foreignKey:NodeID;references:ID" json:"node,omitempty"`
	UserIDs   StringList `gorm:"column:user_ids" json:"userIds"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Server) TableName() string { return "servers" }
