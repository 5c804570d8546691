package cfg

import (
	"testing"
	"time"
)

func TestLocalStore(t *testing.T) {
	st, err := NewLocalStore([]*ValueDef{
		{Name: "weight", Type: ValueTypeFloat, Default: 0.7},
		{Name: "stall", Type: ValueTypeDuration, Default: 5 * time.Minute},
		{Name: "attempts", Type: ValueTypeInt, Default: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	snap := st.Snapshot()
	if v := snap.Float64("weight"); v != 0.7 {
		t.Fatalf("got %v", v)
	}
	if v := snap.Duration("stall"); v != 5*time.Minute {
		t.Fatalf("got %v", v)
	}
	if v := snap.Int("attempts"); v != 3 {
		t.Fatalf("got %v", v)
	}

	if err := st.Update(map[string]interface{}{"weight": 0.5, "stall": "10m"}); err != nil {
		t.Fatal(err)
	}
	// The old snapshot is unchanged; a new one sees the updates.
	if v := snap.Float64("weight"); v != 0.7 {
		t.Fatalf("old snapshot changed: %v", v)
	}
	snap = st.Snapshot()
	if v := snap.Float64("weight"); v != 0.5 {
		t.Fatalf("got %v", v)
	}
	if v := snap.Duration("stall"); v != 10*time.Minute {
		t.Fatalf("got %v", v)
	}
}

func TestValueDefValidate(t *testing.T) {
	d := &ValueDef{Name: "x", Type: ValueTypeInt, Default: 4}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Default.(int64); !ok {
		t.Fatalf("default not normalized: %T", d.Default)
	}
	if err := (&ValueDef{Type: ValueTypeInt, Default: 1}).Validate(); err == nil {
		t.Fatal("expected error for missing name")
	}
	if err := (&ValueDef{Name: "y", Type: "bogus", Default: 1}).Validate(); err == nil {
		t.Fatal("expected error for bad type")
	}
}
