// Package protocol owns the wire contract shared by the codec layers.
//
// Ownership boundary:
// - error classification (structural / integrity / protocol / transport)
// - nothing else: frame and packet primitives live in their subpackages
package protocol
