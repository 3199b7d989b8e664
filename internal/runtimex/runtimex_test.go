package runtimex

import (
	"errors"
	"testing"
)

func TestPanicOnError(t *testing.T) {
	t.Run("error is nil", func(t *testing.T) {
		PanicOnError(nil, "antani") // does not panic
	})

	t.Run("error is not nil", func(t *testing.T) {
		expected := errors.New("mocked error")
		var got error
		func() {
			defer func() {
				got = recover().(error)
			}()
			PanicOnError(expected, "antani")
		}()
		if !errors.Is(got, expected) {
			t.Fatal("not the error we expected", got)
		}
	})
}

func TestAssert(t *testing.T) {
	Assert(true, "antani") // does not panic
	var got interface{}
	func() {
		defer func() {
			got = recover()
		}()
		Assert(false, "antani")
	}()
	if got != "antani" {
		t.Fatal("unexpected panic value", got)
	}
}

func TestTry1(t *testing.T) {
	if Try1(17, nil) != 17 {
		t.Fatal("unexpected value")
	}
	var got interface{}
	func() {
		defer func() {
			got = recover()
		}()
		Try1(0, errors.New("mocked error"))
	}()
	if got == nil {
		t.Fatal("expected a panic")
	}
}
