package operation

import "testing"

func TestIsValid(t *testing.T) {
	for _, o := range All() {
		if !o.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", o)
		}
	}

	invalid := []Operation{"", "search", "RETRIEVE", "mlt"}
	for _, o := range invalid {
		if o.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", o)
		}
	}
}

func TestConstants(t *testing.T) {
	if Retrieve != "retrieve" {
		t.Errorf("Retrieve = %q", Retrieve)
	}
	if Similar != "similar" {
		t.Errorf("Similar = %q", Similar)
	}
}
