package permission

import (
	"fmt"
	"regexp"
	"strings"
)

// Wildcard grants every permission. It is matched only as the whole token,
// never as a pattern inside scoped tokens.
const Wildcard = "*"

var segmentRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

// Permission models a single grantable capability as
// "category[:action[:resourceId]]", or the bare wildcard.
// Example scoped token: "servers:read:6f1c9a".
type Permission struct {
	Category string
	Action   string
	Scope    string
}

// Parse builds a Permission from its string form, enforcing the grammar.
// The wildcard parses to a Permission whose Category is "*".
func Parse(s string) (Permission, error) {
	s = strings.TrimSpace(s)
	if s == Wildcard {
		return Permission{Category: Wildcard}, nil
	}
	parts := strings.Split(s, ":")
	if parts[0] == "" {
		return Permission{}, fmt.Errorf("invalid permission string: %q", s)
	}
	if !segmentRegex.MatchString(parts[0]) {
		return Permission{}, fmt.Errorf("invalid permission category: %q", parts[0])
	}
	p := Permission{Category: parts[0]}
	if len(parts) > 1 {
		if !segmentRegex.MatchString(parts[1]) {
			return Permission{}, fmt.Errorf("invalid permission action: %q", parts[1])
		}
		p.Action = parts[1]
	}
	if len(parts) > 2 {
		scope := strings.Join(parts[2:], ":")
		if scope == "" {
			return Permission{}, fmt.Errorf("invalid permission scope in %q", s)
		}
		p.Scope = scope
	}
	return p, nil
}

func (p Permission) String() string {
	if p.IsWildcard() {
		return Wildcard
	}
	s := p.Category
	if p.Action != "" {
		s += ":" + p.Action
	}
	if p.Scope != "" {
		s += ":" + p.Scope
	}
	return s
}

func (p Permission) IsWildcard() bool { return p.Category == Wildcard }

// IsScoped reports whether the permission targets a single resource.
func (p Permission) IsScoped() bool { return p.Scope != "" }

// Base strips the resource scope, e.g. "servers:read:6f1c9a" -> "servers:read".
func (p Permission) Base() Permission { return Permission{Category: p.Category, Action: p.Action} }

// Scoped appends a resource id to a bare permission token, producing e.g.
// "servers:read:<id>". Call sites use this instead of ad hoc interpolation so
// the grammar stays in one place.
func Scoped(base, resourceID string) string {
	return base + ":" + resourceID
}

// Panel permission catalogue. Scoped variants are derived with Scoped.
const (
	NodesManage = "nodes:manage"
	NodesRead   = "nodes:read"
	NodesWrite  = "nodes:write"

	ServersManage      = "servers:manage"
	ServersRead        = "servers:read"
	ServersWrite       = "servers:write"
	ServersSelf        = "servers:self"
	ServersCreate      = "servers:create"
	ServersStart       = "servers:start"
	ServersStop        = "servers:stop"
	ServersRestart     = "servers:restart"
	ServersDelete      = "servers:delete"
	ServersFiles       = "servers:files"
	ServersFilesRead   = "servers:files:read"
	ServersFilesWrite  = "servers:files:write"
	ServersFilesDelete = "servers:files:delete"
	ServersFilesCreate = "servers:files:create"
	ServersRcon        = "servers:rcon"

	SettingsRead  = "settings:read"
	SettingsWrite = "settings:write"

	RolesRead  = "roles:read"
	RolesWrite = "roles:write"

	ProfileSelf   = "profile:self"
	ProfileManage = "profile:manage"
	ProfileRead   = "profile:read"
	ProfileWrite  = "profile:write"

	UsersRead  = "users:read"
	UsersWrite = "users:write"
)

// All lists every grantable token, wildcard included.
func All() []string {
	return []string{
		Wildcard,
		NodesManage, NodesRead, NodesWrite,
		ServersManage, ServersRead, ServersWrite, ServersSelf,
		ServersCreate, ServersStart, ServersStop, ServersRestart, ServersDelete,
		ServersFiles, ServersFilesRead, ServersFilesWrite, ServersFilesDelete, ServersFilesCreate,
		ServersRcon,
		SettingsRead, SettingsWrite,
		RolesRead, RolesWrite,
		ProfileSelf, ProfileManage, ProfileRead, ProfileWrite,
		UsersRead, UsersWrite,
	}
}

// IsGrantable reports whether s is a valid token to store on a role: either
// a catalogue entry or a catalogue entry scoped to a resource id.
func IsGrantable(s string) bool {
	p, err := Parse(s)
	if err != nil {
		return false
	}
	base := p.Base().String()
	for _, known := range All() {
		if s == known || base == known {
			return true
		}
	}
	return false
}
