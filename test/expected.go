// Package test contains helpers shared by the package tests.
package test

import (
	"fmt"
	"testing"
)

func id(tags ...any) string {
	if len(tags) == 0 {
		return ""
	}
	return fmt.Sprint(tags...) + ": "
}

func expect(v any) (bool, bool) {
	switch v := v.(type) {
	case bool:
		return v, true
	case error:
		return v == nil, true
	case nil:
		return true, true
	}
	return false, false
}

// ExpectSuccess tests v for a success condition suitable for its type:
//
//	bool  -> v == true
//	error -> v == nil
func ExpectSuccess(t *testing.T, v any, tags ...any) bool {
	t.Helper()

	ok, known := expect(v)
	if !known {
		t.Fatalf("%sunsupported type (%T) for expectation testing", id(tags...), v)
		return false
	}
	if !ok {
		t.Errorf("%sexpected success (%T: %v)", id(tags...), v, v)
	}
	return ok
}

// ExpectFailure is the inverse of ExpectSuccess. A nil value is a success
// and so fails this test.
func ExpectFailure(t *testing.T, v any, tags ...any) bool {
	t.Helper()

	ok, known := expect(v)
	if !known {
		t.Fatalf("%sunsupported type (%T) for expectation testing", id(tags...), v)
		return false
	}
	if ok {
		t.Errorf("%sexpected failure (%T)", id(tags...), v)
	}
	return !ok
}

func ExpectEquality[T comparable](t *testing.T, v T, expectedValue T, tags ...any) bool {
	t.Helper()
	if v != expectedValue {
		t.Errorf("%sequality test of type %T failed: '%v' does not equal '%v'", id(tags...), v, v, expectedValue)
		return false
	}
	return true
}

func ExpectInequality[T comparable](t *testing.T, v T, notExpected T, tags ...any) bool {
	t.Helper()
	if v == notExpected {
		t.Errorf("%sinequality test of type %T failed: '%v' equals '%v'", id(tags...), v, v, notExpected)
		return false
	}
	return true
}

// DemandEquality is ExpectEquality but stops the test. Use it when later
// checks depend on the value, lengths of slices about to be indexed for
// instance.
func DemandEquality[T comparable](t *testing.T, v T, expectedValue T, tags ...any) {
	t.Helper()
	if v != expectedValue {
		t.Fatalf("%sequality test of type %T failed: '%v' does not equal '%v'", id(tags...), v, v, expectedValue)
	}
}

func DemandSuccess(t *testing.T, v any, tags ...any) {
	t.Helper()
	if ok, known := expect(v); !known || !ok {
		t.Fatalf("%sa success value is demanded for type %T (%v)", id(tags...), v, v)
	}
}
