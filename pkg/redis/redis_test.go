package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(Config{URL: "redis://" + mr.Addr() + "/0", PoolSize: 4}, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, client.HealthCheck(context.Background()))
	assert.Equal(t, 4, client.Options().PoolSize)
	assert.NoError(t, client.Close())
}

func TestNew_UsesConfiguredPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	_, err := New(Config{URL: "redis://" + mr.Addr()}, zap.NewNop())
	assert.Error(t, err)

	client, err := New(Config{URL: "redis://" + mr.Addr(), Password: "s3cret"}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{URL: "http://localhost:6379"}, zap.NewNop())

	assert.Error(t, err)
}

func TestHealthCheck_AfterServerStops(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(Config{URL: "redis://" + mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Client.Close() })

	mr.Close()

	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestNew_DatabaseSelection(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		db     int
		wantDB int
	}{
		{name: "from url", url: "/3", wantDB: 3},
		{name: "default", url: "", wantDB: 0},
		{name: "explicit override", url: "/3", db: 5, wantDB: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)

			client, err := New(Config{URL: "redis://" + mr.Addr() + tt.url, DB: tt.db}, zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = client.Close() })

			assert.Equal(t, tt.wantDB, client.Options().DB)
		})
	}
}
