package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Keyer derives cache keys. Implementations must be deterministic: equal
// inputs give equal keys across processes.
type Keyer interface {
	// MeshKey identifies a parsed input mesh by the hash of its file.
	MeshKey(contentHash string) string
	// RemeshKey identifies the result of remeshing a mesh with opts.
	RemeshKey(meshHash string, opts RemeshKeyOpts) string
	// RenderKey identifies a rendered wireframe of a mesh.
	RenderKey(meshHash string, opts RenderKeyOpts) string
}

// RemeshKeyOpts are the options that change a remesh result.
type RemeshKeyOpts struct {
	Mode        string  `json:"mode"`
	DetailSize  float64 `json:"detail_size"`
	DetailRatio float64 `json:"detail_ratio"`
	Passes      int     `json:"passes"`
	Smooth      float64 `json:"smooth,omitempty"`
	Cleanup     bool    `json:"cleanup,omitempty"`
	// Brush is a canonical description of the range, empty for the whole
	// mesh.
	Brush string `json:"brush,omitempty"`
	// Mask names the vertex layer used as mask, empty for none.
	Mask       string      `json:"mask,omitempty"`
	EdgeLimit  float64     `json:"edge_limit,omitempty"`
	ViewNormal *[3]float64 `json:"view_normal,omitempty"`
}

// RenderKeyOpts are the options that change a rendered wireframe.
type RenderKeyOpts struct {
	Format string `json:"format"`
	View   string `json:"view"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// MeshKey returns "mesh:<hash>".
func (DefaultKeyer) MeshKey(contentHash string) string {
	return "mesh:" + contentHash
}

// RemeshKey hashes the mesh hash together with opts.
func (DefaultKeyer) RemeshKey(meshHash string, opts RemeshKeyOpts) string {
	return hashKey("remesh", meshHash, opts)
}

// RenderKey hashes the mesh hash together with opts.
func (DefaultKeyer) RenderKey(meshHash string, opts RenderKeyOpts) string {
	return hashKey("render", meshHash, opts)
}

var _ Keyer = DefaultKeyer{}

// hashKey returns prefix + ":" + the SHA-256 of the JSON encoding of parts.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data. The pipeline uses it as the
// identity of an input mesh file.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
