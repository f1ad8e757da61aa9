package cache

import (
	"context"
	"fmt"
	"strconv"
)

// Stats is a snapshot of cache health derived from the Redis INFO command,
// exposed by the read-only statistics endpoint.
type Stats struct {
	UsedMemory       string `json:"used_memory"`
	ConnectedClients int64  `json:"connected_clients"`
	TotalCommands    int64  `json:"total_commands"`
	KeyspaceHits     int64  `json:"keyspace_hits"`
	KeyspaceMisses   int64  `json:"keyspace_misses"`
	HitRate          string `json:"hit_rate"`
}

// Stats collects server statistics. Unlike reads and writes, a store
// failure here is returned: the statistics endpoint has nothing to degrade
// to.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	info, err := s.client.Info(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("collecting cache stats: %w", err)
	}

	hits := parseInfoInt(info, "keyspace_hits")
	misses := parseInfoInt(info, "keyspace_misses")

	return Stats{
		UsedMemory:       info["used_memory_human"],
		ConnectedClients: parseInfoInt(info, "connected_clients"),
		TotalCommands:    parseInfoInt(info, "total_commands_processed"),
		KeyspaceHits:     hits,
		KeyspaceMisses:   misses,
		HitRate:          HitRate(hits, misses),
	}, nil
}

// HitRate formats hits/(hits+misses) as a percentage with one decimal
// place. With no samples it reports "0%" rather than dividing by zero.
func HitRate(hits, misses int64) string {
	total := hits + misses
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(hits)/float64(total)*100)
}

// parseInfoInt reads an integer INFO field, defaulting to 0 when the field
// is absent or malformed.
func parseInfoInt(info map[string]string, key string) int64 {
	n, err := strconv.ParseInt(info[key], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
