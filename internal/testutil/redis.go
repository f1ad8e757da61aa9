package testutil

import (
	"context"
	"strings"
	"testing"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/mnemo-ai/mnemo/internal/kv"
)

// TestKV wraps a Redis test container with a ready kv client.
type TestKV struct {
	Container *tcredis.RedisContainer
	Client    *kv.Client
	Addr      string
}

// SetupTestKV creates an isolated Redis container with a connected kv
// client. The returned cleanup function closes the client and terminates
// the container and must be called (defer it).
//
//	kvs, cleanup := testutil.SetupTestKV(t)
//	defer cleanup()
func SetupTestKV(t *testing.T) (*TestKV, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}
	addr := strings.TrimPrefix(connStr, "redis://")

	client, err := kv.Open(ctx, kv.Config{Addr: addr}, DiscardLogger())
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		_ = client.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return &TestKV{Container: container, Client: client, Addr: addr}, cleanup
}
