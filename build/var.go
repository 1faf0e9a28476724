package build

import "reflect"

// Var holds one value per release channel, for settings that must differ
// between a production binary and a test run (timeouts, backoffs, sweep
// intervals). All three fields must be set and share one concrete type, so
// a caller's type assertion behaves the same under every Release.
type Var struct {
	Standard interface{}
	Dev      interface{}
	Testing  interface{}
}

// Select returns v's value for the compiled Release channel. It panics if
// any field is nil or if the fields' types differ, since either mistake
// would make a Select call work under one Release and fail under another.
func Select(v Var) interface{} {
	if v.Standard == nil || v.Dev == nil || v.Testing == nil {
		panic("nil value in build variable")
	}
	st, dt, tt := reflect.TypeOf(v.Standard), reflect.TypeOf(v.Dev), reflect.TypeOf(v.Testing)
	if st != dt || dt != tt {
		panic("build variable fields must share one type")
	}
	switch Release {
	case "standard":
		return v.Standard
	case "dev":
		return v.Dev
	case "testing":
		return v.Testing
	default:
		panic("unrecognized Release: " + Release)
	}
}
