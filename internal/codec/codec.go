// Package codec marshals structured host messages into the opaque
// payloads the link carries. The wire below does not care; this is a
// convenience layer for hosts exchanging typed records.
package codec

import "fmt"

// Codec serializes typed messages deterministically enough for two hosts
// to exchange them over the link.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry maps format names to codecs.
type Registry struct {
	byName map[string]Codec
}

// NewRegistry returns a registry preloaded with the built-in codecs.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(CBOR())
	return r
}

// Register adds a codec, replacing any previous one of the same name.
func (r *Registry) Register(c Codec) { r.byName[c.Name()] = c }

// Get returns the codec registered under name.
func (r *Registry) Get(name string) (Codec, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("codec: unknown format %q", name)
	}
	return c, nil
}
