package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	gamev1alpha1 "github.com/anvil-platform/forge/api/v1alpha1"
)

const (
	DefaultSnapshotExpiration = 10 * time.Minute
	DefaultCleanupInterval    = 30 * time.Minute
)

// SnapshotCache keeps built snapshots keyed by a fingerprint of their inputs,
// so repeated resolutions against an unchanged catalog skip the rebuild.
type SnapshotCache struct {
	cache *gocache.Cache
}

func NewSnapshotCache(defaultExpiration, cleanupInterval time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: gocache.New(defaultExpiration, cleanupInterval)}
}

func (c *SnapshotCache) Get(key string) (*Memory, bool) {
	value, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	m, ok := value.(*Memory)
	return m, ok
}

func (c *SnapshotCache) Set(key string, m *Memory) {
	c.cache.SetDefault(key, m)
}

func (c *SnapshotCache) Len() int {
	return c.cache.ItemCount()
}

func (c *SnapshotCache) Flush() {
	c.cache.Flush()
}

// FromManifests returns a cached snapshot for the inputs, building and caching it on a miss.
// hit reports whether the snapshot came from the cache.
func (c *SnapshotCache) FromManifests(namespace string, manifests []gamev1alpha1.ModuleManifest, installed []gamev1alpha1.ModuleRef) (m *Memory, hit bool, err error) {
	k := Fingerprint(namespace, manifests, installed)
	if m, ok := c.Get(k); ok {
		return m, true, nil
	}
	m, err = FromManifests(manifests, installed)
	if err != nil {
		return nil, false, err
	}
	c.Set(k, m)
	return m, false, nil
}

// Fingerprint identifies a catalog and installed set by object names, UIDs and resource versions.
func Fingerprint(namespace string, manifests []gamev1alpha1.ModuleManifest, installed []gamev1alpha1.ModuleRef) string {
	parts := make([]string, 0, len(manifests))
	for i := range manifests {
		mm := &manifests[i]
		parts = append(parts, mm.Name+"/"+string(mm.UID)+"/"+mm.ResourceVersion+"/"+mm.Spec.Module.ID+"@"+mm.Spec.Module.Version)
	}
	sort.Strings(parts)

	inst := make([]string, 0, len(installed))
	for _, ref := range installed {
		inst = append(inst, key(ref.ID, ref.Version))
	}
	sort.Strings(inst)

	h := sha256.New()
	h.Write([]byte(namespace))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	h.Write([]byte{1})
	for _, p := range inst {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
