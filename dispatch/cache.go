package dispatch

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sghaida/precodita/internal/log"
)

// InvokeCache memoises direct-invoke resolutions of one Dispatchable.
//
// Entries are keyed by the invoked type, the effective override list and the
// Dispatchable's registration generation, so registering an implementation
// or entering an override scope never serves a stale selection. Failed
// resolutions are not cached.
type InvokeCache struct {
	d     *Dispatchable
	cache *gocache.Cache
}

// NewInvokeCache returns a cache for d. ttl <= 0 keeps entries until Flush.
func NewInvokeCache(d *Dispatchable, ttl time.Duration) *InvokeCache {
	var c *gocache.Cache
	if ttl <= 0 {
		c = gocache.New(gocache.NoExpiration, 0)
	} else {
		c = gocache.New(ttl, 2*ttl)
	}
	return &InvokeCache{d: d, cache: c}
}

// Invoke is (*Dispatchable).Invoke through the cache.
func (c *InvokeCache) Invoke(t reflect.Type) (Func, error) {
	return c.InvokeContext(context.Background(), t)
}

// InvokeContext is (*Dispatchable).InvokeContext through the cache.
func (c *InvokeCache) InvokeContext(ctx context.Context, t reflect.Type) (Func, error) {
	overrides := c.d.env.effectiveOverrides(ctx)
	key := c.key(t, overrides)

	if v, found := c.cache.Get(key); found {
		if sel, ok := v.(Selection); ok {
			log.Debug(log.CatCache, "cache hit", "function", c.d.name, "key", key)
			return sel.Func, nil
		}
		log.Error(log.CatCache, "wrong type assertion when getting value", "key", key)
	}

	sel, err := c.d.resolve(invokeTypes(t), overrides)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, sel)
	return sel.Func, nil
}

// Len returns the number of cached selections.
func (c *InvokeCache) Len() int { return c.cache.ItemCount() }

// Flush drops every cached selection.
func (c *InvokeCache) Flush() { c.cache.Flush() }

func (c *InvokeCache) key(t reflect.Type, overrides []*Backend) string {
	c.d.mu.RLock()
	gen := c.d.generation
	c.d.mu.RUnlock()

	var b strings.Builder
	b.WriteString(strconv.FormatUint(gen, 10))
	b.WriteByte('|')
	if t != nil {
		b.WriteString(typeKey(t))
	}
	for _, o := range overrides {
		b.WriteByte('|')
		b.WriteString(o.id.String())
	}
	return b.String()
}
