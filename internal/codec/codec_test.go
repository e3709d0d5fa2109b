package codec

import (
	"testing"
)

type reading struct {
	Sensor string  `json:"sensor" cbor:"1,keyasint"`
	Value  float64 `json:"value" cbor:"2,keyasint"`
	Seq    uint32  `json:"seq" cbor:"3,keyasint"`
}

func TestRegistryRoundTrips(t *testing.T) {
	r := NewRegistry()
	in := reading{Sensor: "thermo-0", Value: 21.5, Seq: 7}
	for _, name := range []string{"json", "cbor"} {
		c, err := r.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("%s marshal: %v", name, err)
		}
		var out reading
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s unmarshal: %v", name, err)
		}
		if out != in {
			t.Fatalf("%s round trip mismatch: %+v", name, out)
		}
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	if _, err := NewRegistry().Get("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestCBORIsSmallerThanJSON(t *testing.T) {
	in := reading{Sensor: "thermo-0", Value: 21.5, Seq: 7}
	j, err := JSON().Marshal(in)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	c, err := CBOR().Marshal(in)
	if err != nil {
		t.Fatalf("cbor: %v", err)
	}
	if len(c) >= len(j) {
		t.Fatalf("cbor %d bytes, json %d bytes", len(c), len(j))
	}
}
