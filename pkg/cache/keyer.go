package cache

// Keyer builds cache keys.
type Keyer interface {
	// ImageKey returns the key of the image rendered from a graph source
	// (identified by its content hash) in the given format.
	ImageKey(sourceHash, format string) string
}

// DefaultKeyer builds unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ImageKey returns "image:<sha256(sourceHash, format)>".
func (DefaultKeyer) ImageKey(sourceHash, format string) string {
	return hashKey("image", sourceHash, format)
}

// ScopedKeyer wraps a Keyer with a namespace prefix.
//
// Example usage:
//
//	// Separate namespaces for two deployments sharing a Redis database
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tracegraph:staging:")
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

// ImageKey generates a prefixed image key.
func (k *ScopedKeyer) ImageKey(sourceHash, format string) string {
	return k.prefix + k.inner.ImageKey(sourceHash, format)
}
