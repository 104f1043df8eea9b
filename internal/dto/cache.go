package dto

import "time"

// CacheStats summarizes the artifact cache directory.
type CacheStats struct {
	Count     int        `json:"count"`
	TotalSize int64      `json:"totalSize"`
	Oldest    *time.Time `json:"oldest,omitempty"`
	Newest    *time.Time `json:"newest,omitempty"`
}

type CacheClearResponse struct {
	Cleared int `json:"cleared"`
}
