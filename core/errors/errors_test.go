package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindClassifiesWrappedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, KindNone},
		{ErrUnauthorized, KindUnauthorized},
		{fmt.Errorf("bonds: deposit yield: %w", ErrAlreadyCombined), KindAlreadyCombined},
		{fmt.Errorf("%w: insufficient balance", ErrInvalidAmount), KindInvalidAmount},
		{ErrStaleData, KindStaleData},
		{stderrors.New("leveldb: closed"), KindInternal},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
