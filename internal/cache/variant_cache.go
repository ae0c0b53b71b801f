package cache

import (
	"strings"
	"time"

	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
)

const defaultVariantTTL = 2 * time.Minute

// VariantCache stores hot-path SKU and id lookups for stock and ticket writes.
type VariantCache interface {
	GetBySKU(sku string) (catalogdomain.Variant, bool)
	GetByID(id int64) (catalogdomain.Variant, bool)
	Set(variant catalogdomain.Variant)
	Invalidate(variant catalogdomain.Variant)
}

type variantCache struct {
	bySKU Cache[string, catalogdomain.Variant]
	byID  Cache[int64, catalogdomain.Variant]
	ttl   time.Duration
}

// NewVariantCache returns an in-memory variant cache.
func NewVariantCache() VariantCache {
	return &variantCache{
		bySKU: NewTTLCache[string, catalogdomain.Variant](),
		byID:  NewTTLCache[int64, catalogdomain.Variant](),
		ttl:   defaultVariantTTL,
	}
}

func (c *variantCache) GetBySKU(sku string) (catalogdomain.Variant, bool) {
	return c.bySKU.Get(cacheKey(sku))
}

func (c *variantCache) GetByID(id int64) (catalogdomain.Variant, bool) {
	return c.byID.Get(id)
}

func (c *variantCache) Set(variant catalogdomain.Variant) {
	if variant.ID == 0 {
		return
	}
	c.bySKU.Set(cacheKey(variant.SKU), variant, c.ttl)
	c.byID.Set(variant.ID, variant, c.ttl)
}

func (c *variantCache) Invalidate(variant catalogdomain.Variant) {
	c.bySKU.Delete(cacheKey(variant.SKU))
	c.byID.Delete(variant.ID)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}

