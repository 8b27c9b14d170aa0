package main

import (
	"music-search-api-go/cache"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	RetryAfter int64  `json:"retryAfter,omitempty"` // seconds
}

// HealthResponse is the response format for /health
type HealthResponse struct {
	Status         string `json:"status"`
	CacheBackend   string `json:"cache_backend"`
	CacheAvailable bool   `json:"cache_available"`
	CircuitBreaker string `json:"circuit_breaker"`
	RetryIn        string `json:"circuit_breaker_retry_in,omitempty"`
}

// CircuitBreakerConfig echoes the breaker settings
type CircuitBreakerConfig struct {
	Threshold   int `json:"threshold"`
	CooldownSec int `json:"cooldown_sec"`
}

// CircuitBreakerStatus is the response format for /circuit-breaker
type CircuitBreakerStatus struct {
	State          string               `json:"state"`
	Failures       int                  `json:"failures"`
	TimeUntilRetry string               `json:"time_until_retry"`
	OpenedAt       string               `json:"opened_at,omitempty"`
	Config         CircuitBreakerConfig `json:"config"`
}

// ClearCacheResponse reports how many entries a clear removed
type ClearCacheResponse struct {
	Message string `json:"message"`
	Prefix  string `json:"prefix"`
	Deleted int    `json:"deleted"`
}

// BackupResponse is the response format for /cache/backup
type BackupResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

// BackupListResponse is the response format for /cache/backups
type BackupListResponse struct {
	Count   int                `json:"count"`
	Backups []cache.BackupInfo `json:"backups"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// backupper is implemented by backends that can snapshot themselves to disk
type backupper interface {
	Backup() (string, error)
	ListBackups() ([]cache.BackupInfo, error)
}
