package requestlog

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Log(t *testing.T) {
	store := NewMemoryStore(100)

	entry := &Entry{Method: "GET", URL: "http://example.com/", Outcome: OutcomeMatched}
	store.Log(entry)

	assert.Equal(t, 1, store.Count())
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.True(t, entry.Matched())
}

func TestMemoryStore_KeepsExplicitIDAndTimestamp(t *testing.T) {
	store := NewMemoryStore(10)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	store.Log(&Entry{ID: "fixed", Timestamp: ts})

	got := store.Get("fixed")
	require.NotNil(t, got)
	assert.Equal(t, ts, got.Timestamp)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	assert.Nil(t, NewMemoryStore(10).Get("nonexistent"))
}

func TestMemoryStore_NilEntry(t *testing.T) {
	store := NewMemoryStore(10)
	store.Log(nil)
	assert.Equal(t, 0, store.Count())
}

func TestMemoryStore_ListOrder(t *testing.T) {
	store := NewMemoryStore(10)
	store.Log(&Entry{Path: "/first"})
	store.Log(&Entry{Path: "/second"})
	store.Log(&Entry{Path: "/third"})

	entries := store.List(nil)
	require.Len(t, entries, 3)
	assert.Equal(t, "/first", entries[0].Path)
	assert.Equal(t, "/third", entries[2].Path)
}

func TestMemoryStore_ListWithFilter(t *testing.T) {
	store := NewMemoryStore(100)
	store.Log(&Entry{Method: "GET", Host: "api.example.com", Path: "/users", Outcome: OutcomeMatched, MatchedMockID: "m1"})
	store.Log(&Entry{Method: "POST", Host: "api.example.com", Path: "/users", Outcome: OutcomeNoMatch})
	store.Log(&Entry{Method: "GET", Host: "other.example.com", Path: "/orders", Outcome: OutcomePassThrough})

	tests := []struct {
		name   string
		filter *Filter
		want   int
	}{
		{name: "nil", filter: nil, want: 3},
		{name: "zero", filter: &Filter{}, want: 3},
		{name: "method case-insensitive", filter: &Filter{Method: "get"}, want: 2},
		{name: "outcome", filter: &Filter{Outcome: OutcomeNoMatch}, want: 1},
		{name: "host", filter: &Filter{Host: "API.example.com"}, want: 2},
		{name: "path prefix", filter: &Filter{Path: "/us"}, want: 2},
		{name: "matched id", filter: &Filter{MatchedID: "m1"}, want: 1},
		{name: "combined", filter: &Filter{Method: "GET", Path: "/users"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, store.List(tt.filter), tt.want)
		})
	}
}

func TestMemoryStore_ListPaging(t *testing.T) {
	store := NewMemoryStore(100)
	for i := 0; i < 10; i++ {
		store.Log(&Entry{Method: "GET"})
	}

	assert.Len(t, store.List(&Filter{Limit: 3}), 3)
	assert.Len(t, store.List(&Filter{Offset: 3}), 7)
	assert.Empty(t, store.List(&Filter{Offset: 10}))
}

func TestMemoryStore_FIFOEviction(t *testing.T) {
	store := NewMemoryStore(3)
	for _, p := range []string{"/first", "/second", "/third", "/fourth"} {
		store.Log(&Entry{Path: p})
	}

	assert.Equal(t, 3, store.Count())
	entries := store.List(nil)
	assert.Equal(t, "/second", entries[0].Path)
	assert.Equal(t, "/fourth", entries[2].Path)
}

func TestMemoryStore_DefaultCapacity(t *testing.T) {
	store := NewMemoryStore(0)
	for i := 0; i < DefaultCapacity+5; i++ {
		store.Log(&Entry{})
	}
	assert.Equal(t, DefaultCapacity, store.Count())
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore(10)
	store.Log(&Entry{})
	store.Log(&Entry{})
	store.Clear()
	assert.Equal(t, 0, store.Count())
	assert.Empty(t, store.List(nil))
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore(10)
	sub, unsubscribe := store.Subscribe()

	store.Log(&Entry{Path: "/live"})

	select {
	case e := <-sub:
		assert.Equal(t, "/live", e.Path)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}

	unsubscribe()
	unsubscribe()
	store.Log(&Entry{Path: "/after"})
	_, open := <-sub
	assert.False(t, open)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(1000)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Log(&Entry{Method: "GET"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = store.List(nil)
				_ = store.Count()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, store.Count())
}

func TestEntry_JSON(t *testing.T) {
	entry := Entry{
		ID:      "e1",
		Method:  "GET",
		URL:     "http://example.com/",
		Outcome: OutcomeNoMatch,
		NearMisses: []NearMissInfo{
			{MockID: "m1", MatchPercentage: 50, Reasons: []string{"method: expected \"POST\", got \"GET\""}},
		},
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"nomatch"`)
	assert.Contains(t, string(data), `"matchPercentage":50`)
	assert.NotContains(t, string(data), "matchedMockID")
}

func TestMatchPercentage(t *testing.T) {
	assert.Equal(t, 100, MatchPercentage(0, 0))
	assert.Equal(t, 50, MatchPercentage(1, 2))
	assert.Equal(t, 66, MatchPercentage(2, 3))
	assert.Equal(t, 0, MatchPercentage(0, 4))
}

func TestStoreInterfaces(t *testing.T) {
	var _ Logger = NewMemoryStore(1)
	var _ Store = NewMemoryStore(1)
	var _ SubscribableStore = NewMemoryStore(1)
}
