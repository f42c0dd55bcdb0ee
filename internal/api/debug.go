package api

import (
	"net/http"
	"time"

	"vesselpdp/internal/buildinfo"
)

// DebugJSON reports build info and the effective configuration, secrets
// reduced to presence flags.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":             c.Port,
			"RATE_RPS":         c.RateRPS,
			"RATE_BURST":       c.RateBurst,
			"CACHE_TTL":        c.CacheTTL.String(),
			"LOG_LEVEL":        c.LogLevel,
			"LOG_FORMAT":       c.LogFormat,
			"SQLITE_PATH":      c.SQLitePath,
			"HAS_DATABASE_URL": c.DatabaseURL != "",
			"HAS_REDIS_URL":    c.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
