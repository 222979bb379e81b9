package registry

import (
	"testing"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProviders() []search.Provider {
	return []search.Provider{
		{ID: "a", Name: "A", Enabled: true, Priority: 1},
		{ID: "b", Name: "B", Enabled: false, Priority: 2},
		{ID: "c", Name: "C", Enabled: true, Priority: 3},
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestGet(t *testing.T) {
	r := New(testProviders(), testLogger())

	p, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "B", p.Name)

	_, err = r.Get("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrProviderNotFound)
}

func TestListEnabledFiltersAndPreservesOrder(t *testing.T) {
	r := New(testProviders(), testLogger())

	enabled := r.ListEnabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "a", enabled[0].ID)
	assert.Equal(t, "c", enabled[1].ID)
}

func TestListAllReturnsCopy(t *testing.T) {
	r := New(testProviders(), testLogger())

	all := r.ListAll()
	require.Len(t, all, 3)
	all[0].ID = "mutated"

	again := r.ListAll()
	assert.Equal(t, "a", again[0].ID)
}
