package protocol

import (
	"errors"
	"fmt"
	"testing"
)

type classified struct{ class Class }

func (e *classified) Error() string { return "classified" }
func (e *classified) Class() Class  { return e.class }

func TestClassOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"plain error", errors.New("plain"), ClassUnknown},
		{"structural", &classified{ClassStructural}, ClassStructural},
		{"wrapped integrity", fmt.Errorf("recv: %w", &classified{ClassIntegrity}), ClassIntegrity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassOf(tc.err); got != tc.want {
				t.Fatalf("ClassOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassString(t *testing.T) {
	for class, want := range map[Class]string{
		ClassUnknown:    "unknown",
		ClassStructural: "structural",
		ClassIntegrity:  "integrity",
		ClassProtocol:   "protocol",
		ClassTransport:  "transport",
	} {
		if got := class.String(); got != want {
			t.Fatalf("Class(%d).String() = %q, want %q", class, got, want)
		}
	}
}
