package build

import "testing"

// didPanic reports whether fn panicked.
func didPanic(fn func()) (p bool) {
	defer func() {
		p = recover() != nil
	}()
	fn()
	return
}

// TestSelect checks Select's nil and type-mismatch guards. The Release
// constant cannot change during a test run, so only the compiled channel's
// return path is exercised.
func TestSelect(t *testing.T) {
	var v Var
	if !didPanic(func() { Select(v) }) {
		t.Error("Select should panic with all nil fields")
	}

	v.Standard = 0
	if !didPanic(func() { Select(v) }) {
		t.Error("Select should panic with some nil fields")
	}

	v = Var{Standard: 0, Dev: 0, Testing: 0}
	if didPanic(func() { Select(v) }) {
		t.Error("Select should not panic with valid fields")
	}
	if !didPanic(func() { _ = Select(v).(string) }) {
		t.Error("improper type assertion should panic")
	}

	v.Standard = "foo"
	if !didPanic(func() { Select(v) }) {
		t.Error("Select should panic if field types do not match")
	}

	// Convertible is not assignable: a myint field would make the usual
	// .(int) assertion succeed under some Release constants and fail under
	// others, so Select rejects it outright.
	type myint int
	v.Standard = myint(0)
	if !didPanic(func() { Select(v) }) {
		t.Error("Select should panic if field types are merely convertible")
	}
}
