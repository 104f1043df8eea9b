package dto

// CacheStatus reports where a chart image came from.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// ChartImage is a rendered chart ready to be written to a client.
type ChartImage struct {
	Data        []byte
	Digest      string
	Cache       CacheStatus
	Placeholder bool
}
