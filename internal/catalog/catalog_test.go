package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	regions := c.Regions()
	assert.Len(t, regions, 16)
	assert.Equal(t, "Arica y Parinacota", regions[0])

	communes, ok := c.CommunesOf("metropolitana de santiago ")
	require.True(t, ok)
	assert.Contains(t, communes, "Ñuñoa")
	assert.True(t, c.HasCommune("Valparaíso", "viña del mar"))
	assert.False(t, c.HasCommune("Valparaíso", "Temuco"))
}

func TestCommunesOfUnknownRegion(t *testing.T) {
	c, err := Parse([]byte(`{"regiones":[{"region":"Norte","comunas":["A","B"]}]}`))
	require.NoError(t, err)

	_, ok := c.CommunesOf("Sur")
	assert.False(t, ok)

	communes, ok := c.CommunesOf("Norte")
	require.True(t, ok)
	communes[0] = "mutated"
	again, _ := c.CommunesOf("Norte")
	assert.Equal(t, []string{"A", "B"}, again)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.Error(t, err)
}
