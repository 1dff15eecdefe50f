package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesKind(t *testing.T) {
	inner := New(KindVerb, "invalid HTTP verb: %q", "FETCH")
	wrapped := fmt.Errorf("executing: %w", inner)

	if got := KindOf(Wrap(KindAssertion, wrapped)); got != KindVerb {
		t.Errorf("KindOf = %v, want %v", got, KindVerb)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KindTransport, nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestErrorMessage(t *testing.T) {
	sentinel := errors.New("connection refused")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"msg only", &Error{Kind: KindSchema, Msg: "missing name"}, "missing name"},
		{"err only", &Error{Kind: KindTransport, Err: sentinel}, "connection refused"},
		{"both", &Error{Kind: KindTransport, Msg: "request failed", Err: sentinel}, "request failed: connection refused"},
		{"neither", &Error{Kind: KindTimeout}, "timeout error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("boom")
	err := Wrap(KindTransport, sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to find the wrapped sentinel")
	}
	if KindOf(sentinel) != KindUnknown {
		t.Error("expected unclassified error to report KindUnknown")
	}
}
