package build

import (
	"errors"
	"testing"
)

// TestComposeErrors checks that ComposeErrors is nil only when every input
// is nil, and otherwise joins the non-nil inputs in order.
func TestComposeErrors(t *testing.T) {
	tests := []struct {
		errs    []error
		wantNil bool
		want    string
	}{
		{wantNil: true},
		{errs: []error{}, wantNil: true},
		{errs: []error{nil, nil}, wantNil: true},
		{errs: []error{errors.New("foo")}, want: "foo"},
		{errs: []error{errors.New("foo"), nil, errors.New("bar")}, want: "foo; bar"},
	}
	for _, tt := range tests {
		err := ComposeErrors(tt.errs...)
		if tt.wantNil {
			if err != nil {
				t.Errorf("ComposeErrors(%v) = %v, want nil", tt.errs, err)
			}
			continue
		}
		if err == nil || err.Error() != tt.want {
			t.Errorf("ComposeErrors(%v) = %v, want %q", tt.errs, err, tt.want)
		}
	}
}
