package cache

// ScopedKeyer wraps a Keyer with a prefix so several tools or tenants can
// share one backend without colliding.
//
// Example usage:
//
//	// Keys of the HTTP server live under their own namespace in Redis.
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "dyntopo:serve:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// MeshKey generates a prefixed key for a parsed mesh.
func (k *ScopedKeyer) MeshKey(contentHash string) string {
	return k.prefix + k.inner.MeshKey(contentHash)
}

// RemeshKey generates a prefixed key for a remesh result.
func (k *ScopedKeyer) RemeshKey(meshHash string, opts RemeshKeyOpts) string {
	return k.prefix + k.inner.RemeshKey(meshHash, opts)
}

// RenderKey generates a prefixed key for a rendered wireframe.
func (k *ScopedKeyer) RenderKey(meshHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(meshHash, opts)
}
