package models

import (
	"time"

	"github.com/spire-panel/spire/permission"
)

// Role is a named, ranked bundle of permissions assignable to a user via an
// external identity claim. Roles are upserted by name and never deleted.
type Role struct {
	ID              string     `gorm:"column:id;primaryKey" json:"id"`
	Name            string     `gorm:"column:name;uniqueIndex" json:"name"`
	Order           int        `gorm:"column:sort_order" json:"order"`
	Permissions     StringList `gorm:"column:permissions" json:"permissions"`
	InheritChildren bool       `gorm:"column:inherit_children" json:"inheritChildren"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Role) TableName() string { return "roles" }

// Grant converts the stored record into the value the permission engine
// evaluates. The slice is copied so engine-side merging can never alias the
// loaded record.
func (r Role) Grant() permission.Role {
	perms := make([]string, len(r.Permissions))
	copy(perms, r.Permissions)
	return permission.Role{
		Name:            r.Name,
		Order:           r.Order,
		Permissions:     perms,
		InheritChildren: r.InheritChildren,
	}
}
