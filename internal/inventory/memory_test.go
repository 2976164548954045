package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RemoveItem(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	m.Give("c1", "weed", 3)

	ok, err := m.RemoveItem(ctx, "c1", "weed", 4)
	require.NoError(t, err)
	assert.False(t, ok, "cannot remove more than held")

	ok, err = m.RemoveItem(ctx, "c1", "weed", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := m.GetItemCount(ctx, "c1", "weed")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemory_Capacity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(5)
	m.Give("c1", "coke", 4)

	ok, err := m.CanCarryItem(ctx, "c1", "coke", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.AddItem(ctx, "c1", "coke", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.AddItem(ctx, "c1", "coke", 1)
	require.NoError(t, err)
	assert.False(t, ok, "bag is full")
}

func TestMemory_Money(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	require.NoError(t, m.AddMoney(ctx, "c1", 500, "sale"))
	ok, err := m.RemoveMoney(ctx, "c1", 600, "bribe")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.RemoveMoney(ctx, "c1", 200, "bribe")
	require.NoError(t, err)
	assert.True(t, ok)

	money, err := m.GetMoney(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), money)
}

func TestMemory_ConsumeAccessItem(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	m.Give("c1", "lockpick", 1)

	ok, err := m.CheckAccessItem(ctx, "c1", "lockpick")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.ConsumeAccessItem(ctx, "c1", "lockpick")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.CheckAccessItem(ctx, "c1", "lockpick")
	require.NoError(t, err)
	assert.False(t, ok)
}
