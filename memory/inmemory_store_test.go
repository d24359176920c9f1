package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_CreateSession(t *testing.T) {
	store := NewInMemoryStore(DefaultMaxHistory)
	ctx := context.Background()

	a := store.CreateSession(ctx)
	b := store.CreateSession(ctx)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.SessionCount())

	history, err := store.GetHistory(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestInMemoryStore_UnknownSession(t *testing.T) {
	store := NewInMemoryStore(DefaultMaxHistory)

	history, err := store.GetHistory(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 0, store.SessionCount())
}

func TestInMemoryStore_AddExchangeTruncates(t *testing.T) {
	store := NewInMemoryStore(2)
	ctx := context.Background()
	id := store.CreateSession(ctx)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.AddExchange(ctx, id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	history, err := store.GetHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "User: q2\nAssistant: a2\nUser: q3\nAssistant: a3", FormatHistory(history))
}

func TestInMemoryStore_AddExchangeCreatesSession(t *testing.T) {
	store := NewInMemoryStore(DefaultMaxHistory)
	ctx := context.Background()

	require.NoError(t, store.AddExchange(ctx, "external-id", "q", "a"))

	history, err := store.GetHistory(ctx, "external-id")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestInMemoryStore_HistoryIsACopy(t *testing.T) {
	store := NewInMemoryStore(DefaultMaxHistory)
	ctx := context.Background()
	id := store.CreateSession(ctx)
	require.NoError(t, store.AddExchange(ctx, id, "q", "a"))

	history, _ := store.GetHistory(ctx, id)
	history[0].Content = "changed"

	again, _ := store.GetHistory(ctx, id)
	assert.Equal(t, "q", again[0].Content)
}

func TestInMemoryStore_ConcurrentExchanges(t *testing.T) {
	store := NewInMemoryStore(3)
	ctx := context.Background()

	ids := []string{store.CreateSession(ctx), store.CreateSession(ctx), store.CreateSession(ctx)}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				_ = store.AddExchange(ctx, id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
				_, _ = store.GetHistory(ctx, id)
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range ids {
		history, err := store.GetHistory(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 6)
		for i := 0; i < len(history); i += 2 {
			assert.Equal(t, "user", history[i].Role)
			assert.Equal(t, "assistant", history[i+1].Role)
			// pairs are never interleaved
			assert.Equal(t, history[i].Content[1:], history[i+1].Content[1:])
		}
	}
}
