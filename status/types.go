package status

type HealthResponse struct {
	Status     string                  `json:"status"`
	Components map[string]HealthResult `json:"components"`
}

type HealthResult struct {
	Status string  `json:"status"`
	Error  *string `json:"error,omitempty"`
}

type StatusResponse struct {
	Version  string        `json:"version"`
	UpTime   string        `json:"uptime"`
	Runtime  RuntimeStats  `json:"runtime"`
	Memory   MemoryStats   `json:"memory"`
	Database DatabaseStats `json:"database"`
	Tracking TrackingStats `json:"tracking"`
	Logs     LogStats      `json:"logs"`
}

type MemoryStats struct {
	Alloc       string `json:"alloc"`
	Sys         string `json:"sys"`
	HeapAlloc   string `json:"heap_alloc"`
	HeapObjects int64  `json:"heap_objects"`
	GC          int64  `json:"gc"`
}

type DatabaseStats struct {
	TotalConnections  int `json:"total_connections"`
	ActiveConnections int `json:"active_connections"`
}

type RuntimeStats struct {
	Go         string `json:"go"`
	Goroutines int    `json:"goroutines"`
}

type TrackingStats struct {
	TestMode     bool `json:"test_mode"`
	UseQueue     bool `json:"use_queue"`
	ActivePixels int  `json:"active_pixels"`
}

type LogStats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Error   int64 `json:"error"`
	Pending int64 `json:"pending"`
}

func BytesToMiB(bytes uint64) float64 {
	return float64(bytes) / 1024 / 1024
}
