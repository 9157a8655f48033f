package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nameSet map[string]bool

func (n nameSet) Exists(_ context.Context, name string) (bool, error) {
	return n[name], nil
}

func TestLinksDispatchOnTarget(t *testing.T) {
	links := Links{Items: nameSet{"TV-01": true}, Warehouses: nameSet{"Bin A": true}}
	ctx := context.Background()

	ok, err := links.LinkExists(ctx, LinkItem, "TV-01")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = links.LinkExists(ctx, LinkWarehouse, "TV-01")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = links.LinkExists(ctx, "Customer", "ACME")
	require.Error(t, err)
}
