package smet

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	Error("terror", errors.New("1"))
	Errorf("terror", "an error %d", 2)
	c := GetCounter("terror")
	if c.Count() != 2 {
		t.Fatalf("expected count 2, got %d", c.Count())
	}
}
