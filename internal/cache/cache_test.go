package cache

import (
	"testing"
	"time"

	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &ttlCache[string, int]{
		entries: make(map[string]entry[int]),
		now:     func() time.Time { return now },
	}

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	got, ok = c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestVariantCacheNormalizesSKU(t *testing.T) {
	c := NewVariantCache()
	variant := catalogdomain.Variant{ID: 7, SKU: "MAT-001", Name: "Steel"}
	c.Set(variant)

	got, ok := c.GetBySKU(" mat-001 ")
	require.True(t, ok)
	assert.Equal(t, int64(7), got.ID)

	_, ok = c.GetByID(7)
	assert.True(t, ok)

	c.Invalidate(variant)
	_, ok = c.GetBySKU("MAT-001")
	assert.False(t, ok)
}

func TestVariantCacheIgnoresZeroID(t *testing.T) {
	c := NewVariantCache()
	c.Set(catalogdomain.Variant{SKU: "X"})
	_, ok := c.GetBySKU("X")
	assert.False(t, ok)
}
