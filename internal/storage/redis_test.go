package storage

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}

func TestRedisGetPut(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	r := NewRedis(client, WithRedisPrefix("test:"))

	v, err := r.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Put(ctx, "cart", []byte(`[{"id":1,"quantity":2}]`)))

	raw, err := mr.Get("test:cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"quantity":2}]`, raw)

	v, err = r.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"quantity":2}]`, string(v))
}

func TestRedisUpdateIsAtomic(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	r := NewRedis(client)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Update(ctx, "counter", func(cur []byte) ([]byte, error) {
				var n int
				if cur != nil {
					if err := json.Unmarshal(cur, &n); err != nil {
						return nil, err
					}
				}
				return json.Marshal(n + 1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := r.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "5", string(v))
}

func TestRedisUpdateSkipsNilWrite(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	r := NewRedis(client)

	require.NoError(t, r.Update(ctx, "wishlist", func([]byte) ([]byte, error) { return nil, nil }))
	assert.False(t, mr.Exists(DefaultRedisPrefix+"wishlist"))
}

func TestRedisPubSub(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := NewRedis(client)
	listener := NewRedis(client)

	events, stop, err := listener.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	sent := Event{
		ID:         "ev-1",
		Origin:     "tab-a",
		Collection: "wishlist",
		Action:     "add",
		Subject:    "3",
		Value:      json.RawMessage(`[3]`),
		Time:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, publisher.Publish(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Collection, got.Collection)
		assert.JSONEq(t, `[3]`, string(got.Value))
		assert.True(t, sent.Time.Equal(got.Time))
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	r, err := DialRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = DialRedis(context.Background(), "://bad")
	assert.Error(t, err)
}
