package cache

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey identifies the layout of a graph under a configuration.
	LayoutKey(graphHash string, settings any) string

	// ArtifactKey identifies one rendering of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the rendering inputs that change an artifact.
type ArtifactKeyOpts struct {
	Format     string  `json:"format"`
	Size       int     `json:"size,omitempty"`
	Padding    float64 `json:"padding,omitempty"`
	HideLabels bool    `json:"hide_labels,omitempty"`
}

// DefaultKeyer hashes its inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<hash>". settings is hashed through its JSON
// encoding, so it must be JSON-serializable.
func (DefaultKeyer) LayoutKey(graphHash string, settings any) string {
	return hashKey("layout", graphHash, settings)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

// ScopedKeyer prepends a fixed prefix to every key of an inner keyer. The
// HTTP service uses it to keep its entries apart from the CLI's when both
// share one Redis instance.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer uses
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(graphHash string, settings any) string {
	return k.prefix + k.inner.LayoutKey(graphHash, settings)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
