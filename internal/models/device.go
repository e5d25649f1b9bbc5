package models

type Device struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	SN          string     `json:"sn"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   Timestamp  `json:"created_at,omitzero"`
	UpdatedAt   *Timestamp `json:"updated_at,omitempty"`
}

// DeviceUpdate carries only the fields being changed; the serial number is immutable.
type DeviceUpdate struct {
	Name        *string `json:"name,omitempty"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Heartbeat is one metrics sample reported by a device.
type Heartbeat struct {
	ID           string    `json:"id,omitempty"`
	DeviceID     string    `json:"device_id,omitempty"`
	DeviceSN     string    `json:"device_sn,omitempty"`
	CPUUsage     float64   `json:"cpu_usage"`
	RAMUsage     float64   `json:"ram_usage"`
	DiskFree     float64   `json:"disk_free"`
	Temperature  float64   `json:"temperature"`
	DNSLatency   float64   `json:"dns_latency"`
	Connectivity int       `json:"connectivity"`
	BootTime     Timestamp `json:"boot_time"`
	CreatedAt    Timestamp `json:"created_at,omitzero"`
}
