package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hempex-matching/internal/common/config"
)

func TestNewElasticsearchCarriesIndex(t *testing.T) {
	client, err := NewElasticsearch(config.ElasticsearchConfig{
		Addresses: []string{"http://localhost:9200"},
		Index:     "listings",
	})

	require.NoError(t, err)
	require.NotNil(t, client.Client)
	assert.Equal(t, "listings", client.Index)
}
