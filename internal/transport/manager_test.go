package transport

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/omnisearch/omnisearch/internal/registry"
	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testRegistry(t *testing.T, providers ...search.Provider) *registry.Registry {
	t.Helper()
	return registry.New(providers, testLogger())
}

func apiProvider(id string) search.Provider {
	return search.Provider{
		ID:      id,
		Name:    id,
		Kind:    search.KindDirectAPI,
		Enabled: true,
		Adapter: "searxng",
		Transport: search.Transport{
			BaseURL: "http://localhost:8888",
		},
	}
}

func TestGetHandleCachesPerProvider(t *testing.T) {
	m := NewManager(testRegistry(t, apiProvider("searxng")), testLogger())
	t.Cleanup(func() { _ = m.CloseAll() })

	first, err := m.GetHandle(context.Background(), "searxng")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "searxng", first.ProviderID())

	second, err := m.GetHandle(context.Background(), "searxng")
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.Equal(t, []string{"searxng"}, m.Connected())
}

func TestGetHandleConcurrentCallersShareOneHandle(t *testing.T) {
	m := NewManager(testRegistry(t, apiProvider("searxng")), testLogger())
	t.Cleanup(func() { _ = m.CloseAll() })

	const callers = 16
	handles := make([]Handle, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.GetHandle(context.Background(), "searxng")
			assert.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, handles[0], handles[i])
	}
	assert.Len(t, m.Connected(), 1)
}

func TestGetHandleUnknownProvider(t *testing.T) {
	m := NewManager(testRegistry(t, apiProvider("searxng")), testLogger())

	_, err := m.GetHandle(context.Background(), "nope")
	assert.ErrorIs(t, err, search.ErrProviderNotFound)
}

func TestGetHandleFailureNotCached(t *testing.T) {
	provider := apiProvider("brave")
	provider.Transport.AuthEnv = "TEST_BRAVE_KEY"
	m := NewManager(testRegistry(t, provider), testLogger())
	t.Cleanup(func() { _ = m.CloseAll() })

	_, err := m.GetHandle(context.Background(), "brave")
	require.ErrorIs(t, err, search.ErrProviderUnavailable)
	assert.Empty(t, m.Connected())

	// Once the credential appears, the next call retries and succeeds.
	t.Setenv("TEST_BRAVE_KEY", "secret")
	h, err := m.GetHandle(context.Background(), "brave")
	require.NoError(t, err)
	assert.Equal(t, "brave", h.ProviderID())
}

func TestCloseAllDropsHandlesAndRefusesNewOnes(t *testing.T) {
	m := NewManager(testRegistry(t, apiProvider("searxng")), testLogger())

	_, err := m.GetHandle(context.Background(), "searxng")
	require.NoError(t, err)

	require.NoError(t, m.CloseAll())
	assert.Empty(t, m.Connected())

	_, err = m.GetHandle(context.Background(), "searxng")
	assert.ErrorIs(t, err, search.ErrProviderUnavailable)
}
