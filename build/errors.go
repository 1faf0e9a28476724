package build

import (
	"errors"
	"strings"
)

// ComposeErrors flattens multiple errors into one whose message joins the
// non-nil inputs with "; ". It returns nil when every input is nil, so a
// shutdown path can compose its per-component close errors unconditionally.
// The input errors' types are not preserved; use ferr's category wrapping
// where a caller needs to classify.
func ComposeErrors(errs ...error) error {
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}
