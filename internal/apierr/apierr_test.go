package apierr

import (
	"errors"
	"testing"
)

func TestKindOfRoundTripsThroughConstructors(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Auth("x"), KindAuth},
		{Authz("x"), KindAuthz},
		{Validation("x"), KindValidation},
		{Conflict("x"), KindConflict},
		{Transient("x", nil), KindTransient},
		{Persistence("x", nil), KindPersistence},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestKindOfDefaultsToPersistenceForUnclassifiedErrors(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindPersistence {
		t.Errorf("KindOf(plain error) = %v, want KindPersistence", got)
	}
}

func TestWSCloseCodeAndHTTPStatusCoverEveryKind(t *testing.T) {
	kinds := []Kind{KindAuth, KindAuthz, KindValidation, KindConflict, KindTransient, KindPersistence}
	for _, k := range kinds {
		if code := WSCloseCode(k); code < 4000 || code > 4999 {
			t.Errorf("WSCloseCode(%v) = %v, want a private-use range close code", k, code)
		}
		if status := HTTPStatus(k); status < 400 {
			t.Errorf("HTTPStatus(%v) = %v, want a 4xx/5xx status", k, status)
		}
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Persistence("wrapped", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if err.Error() != "wrapped: root cause" {
		t.Errorf("Error() = %q, want %q", err.Error(), "wrapped: root cause")
	}
}
