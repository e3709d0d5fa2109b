package codec

import (
	"github.com/fxamacker/cbor/v2"
)

type cborCodec struct{}

// CBOR returns a compact binary codec (RFC 8949), the better fit for a
// byte-budgeted serial link.
func CBOR() Codec { return cborCodec{} }

func (cborCodec) Name() string                       { return "cbor" }
func (cborCodec) Marshal(v any) ([]byte, error)      { return cbor.Marshal(v) }
func (cborCodec) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }
