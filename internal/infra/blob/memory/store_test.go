package memory

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cornucopia/internal/blob/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	assert.Equal(t, core.DriverMemory, s.Driver())

	md := map[string]string{"fingerprint": "abc"}
	_, err := s.Put(ctx, "protocols/a.py", strings.NewReader("hello"), core.PutOptions{ContentType: "text/x-python", Metadata: md})
	require.NoError(t, err)
	md["fingerprint"] = "mutated"

	info, rc, err := s.Get(ctx, "protocols/a.py")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(b))
	assert.Equal(t, "abc", info.Metadata["fingerprint"])
	assert.EqualValues(t, 5, info.Size)

	_, err = s.Put(ctx, "protocols/a.py", strings.NewReader("again"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrExists)
	_, err = s.Head(ctx, "protocols/missing.py")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = s.Get(ctx, "protocols/missing.py")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Put(ctx, "../x", strings.NewReader(""), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

func TestMemoryStoreConcurrentPutsOfOneKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	list, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
