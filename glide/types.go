// Package glide is the client for the agent daemon running on each game
// server node. All traffic is authenticated with the node's shared secret and
// wrapped in the agent's {success, data, error} envelope.
package glide

// HealthStats is the snapshot a node reports from its health endpoint.
type HealthStats struct {
	MemoryUsageMB      float64 `json:"memoryUsageMB"`
	MemoryUsagePercent float64 `json:"memoryUsagePercent"`
	MemoryUsageTotal   float64 `json:"memoryUsageTotal"`
	MemoryUsageFree    float64 `json:"memoryUsageFree"`
	TotalMemory        float64 `json:"totalMemory"`
	CPUUsagePercent    float64 `json:"cpuUsagePercent"`
	CPUCores           int     `json:"cpuCores"`
	CPUModel           string  `json:"cpuModel"`
	Uptime             float64 `json:"uptime"`
	StorageFreeSpace   float64 `json:"storageFreeSpace"`
	StorageUsedSpace   float64 `json:"storageUsedSpace"`
	StorageTotalSpace  float64 `json:"storageTotalSpace"`
	StorageUsedPercent float64 `json:"storageUsedPercent"`
	LastSeen           string  `json:"lastSeen,omitempty"`
}

// CreateContainerRequest describes the game server container to provision.
type CreateContainerRequest struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Type      string `json:"type"`
	Port      int    `json:"port"`
	Memory    string `json:"memory"`
	ModpackID string `json:"modpackId,omitempty"`
}

// Container is the agent's view of a provisioned game server.
type Container struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image,omitempty"`
	State   string `json:"state,omitempty"`
	Status  string `json:"status,omitempty"`
	Port    int    `json:"port,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// ContainerStatus is the runtime status of one container.
type ContainerStatus struct {
	ID       string  `json:"id"`
	State    string  `json:"state"`
	Running  bool    `json:"running"`
	CPU      float64 `json:"cpu,omitempty"`
	MemoryMB float64 `json:"memoryMB,omitempty"`
}

// FileEntry is one entry of a container's data directory listing.
type FileEntry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"isDir"`
	Mtime string `json:"mtime,omitempty"`
}
