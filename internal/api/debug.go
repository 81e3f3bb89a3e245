package api

import (
	"net/http"
	"strings"
	"time"

	"portpulse/internal/buildinfo"
	"portpulse/internal/cache"
)

// DebugJSON reports build info and effective configuration flags. Secrets are
// reduced to presence booleans.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	cacheInfo := map[string]any{
		"backend": s.Cache.Name(),
		"ttl":     s.Config.Cache.CSVTTL.String(),
	}
	if rc, ok := s.Cache.(*cache.Redis); ok {
		cacheInfo["breaker"] = rc.State()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  s.now().UTC().Format(time.RFC3339),
		"store": s.storeName(),
		"cache": cacheInfo,
		"config": map[string]any{
			"APP_ENV":            s.Config.AppEnv,
			"HTTP_ADDR":          s.Config.HTTP.Addr,
			"ALLOW_ORIGINS":      strings.Join(s.Config.HTTP.AllowOrigins, ","),
			"RATE_RPS":           s.Config.Rate.RPS,
			"RATE_BURST":         s.Config.Rate.Burst,
			"DISABLE_RATELIMIT":  s.Config.Rate.Disabled,
			"REQUIRE_API_KEY":    s.Config.Auth.Required,
			"API_KEYS_COUNT":     len(s.Config.Auth.Keys),
			"HS_IMPORTS_ENABLED": s.Config.Features.HSImports,
			"DB_MAX_CONNS":       s.Config.Database.MaxConns,
			"HAS_DATABASE_URL":   s.Config.Database.URL != "",
			"HAS_REDIS_URL":      s.Config.Cache.RedisURL != "",
		},
	})
}
