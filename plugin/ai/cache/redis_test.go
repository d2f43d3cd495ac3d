package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// getRedisAddr returns REDIS_TEST_ADDR, or starts a container when REDIS_TEST=1.
func getRedisAddr(t *testing.T) string {
	if addr := os.Getenv("REDIS_TEST_ADDR"); addr != "" {
		return addr
	}
	if os.Getenv("REDIS_TEST") != "1" {
		t.Skip("set REDIS_TEST=1 or REDIS_TEST_ADDR to run Redis tests")
	}

	container, err := testcontainers.GenericContainer(t.Context(), testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(t.Context(), "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisService(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultRedisConfig()
	cfg.Addr = getRedisAddr(t)
	cfg.KeyPrefix = "vectornotes-test:"

	svc, err := NewRedisService(ctx, cfg)
	require.NoError(t, err)
	defer svc.Close()

	vector := EncodeVector([]float32{0.1, 0.2})
	require.NoError(t, svc.Set(ctx, "embedding:m:a", vector, time.Minute))
	require.NoError(t, svc.Set(ctx, "embedding:m:b", vector, time.Minute))

	value, ok := svc.Get(ctx, "embedding:m:a")
	require.True(t, ok)
	assert.Equal(t, vector, value)

	_, ok = svc.Get(ctx, "missing")
	assert.False(t, ok)

	// Overwrites replace the stored vector.
	other := EncodeVector([]float32{0.3, 0.4})
	require.NoError(t, svc.Set(ctx, "embedding:m:b", other, time.Minute))
	value, ok = svc.Get(ctx, "embedding:m:b")
	require.True(t, ok)
	assert.Equal(t, other, value)
}

func TestNewRedisService_RequiresAddr(t *testing.T) {
	_, err := NewRedisService(context.Background(), RedisConfig{})
	assert.Error(t, err)
}
