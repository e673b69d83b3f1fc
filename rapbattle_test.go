package rapbattle

import (
	"errors"
	"fmt"
	"testing"
)

func TestHint(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("process: couldn't convert: %w", WithHint(base, "check the key"))

	if got := Hint(err); got != "check the key" {
		t.Fatalf("Hint() = %q; want %q", got, "check the key")
	}
	if !errors.Is(err, base) {
		t.Fatalf("errors.Is(err, base) = false; want true")
	}
	want := "Error: process: couldn't convert: boom\ncheck the key"
	if got := Report(err); got != want {
		t.Fatalf("Report() = %q; want %q", got, want)
	}
}

func TestWithHintKeepsFirst(t *testing.T) {
	err := WithHint(WithHint(errors.New("boom"), "inner"), "outer")
	if got := Hint(err); got != "inner" {
		t.Fatalf("Hint() = %q; want %q", got, "inner")
	}
	if WithHint(nil, "hint") != nil {
		t.Fatal("WithHint(nil) != nil")
	}
}
