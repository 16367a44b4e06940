package graph

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"graphable/internal/domain"
)

// DefaultResultTTL applies when a cache policy sets no TTL.
const DefaultResultTTL = time.Minute

// cacheKey identifies a graph run by workspace, graph, graph revision and
// effective parameters. Unsaved graphs are never cached.
func (s *Service) cacheKey(g *domain.Graph, effective map[string]any) (string, bool) {
	if s.results == nil || g.ID == "" || g.CachePolicy == nil || !g.CachePolicy.Enabled {
		return "", false
	}
	// encoding/json sorts map keys, so equal parameter sets encode equally.
	encoded, err := json.Marshal(effective)
	if err != nil {
		return "", false
	}
	return strings.Join([]string{
		g.WorkspaceID,
		g.ID,
		strconv.FormatInt(g.UpdatedAt.UnixNano(), 10),
		string(encoded),
	}, "|"), true
}

func cacheTTL(p *domain.CachePolicy) time.Duration {
	if p != nil && p.TTLSeconds > 0 {
		return time.Duration(p.TTLSeconds) * time.Second
	}
	return DefaultResultTTL
}
