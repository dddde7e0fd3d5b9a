package store

import (
	"context"
	"testing"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
)

func TestMemory_SaveLoadDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, err := m.Load(ctx, "nope"); ok || err != nil {
		t.Fatalf("load missing: ok=%v err=%v", ok, err)
	}

	state := control.State{
		SessionID: "s1",
		PWM:       90,
		Turns:     []control.Turn{{User: "up", Reply: "ok", PWM: 90}},
	}
	if err := m.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	// the stored copy must not alias the caller's slice
	state.Turns[0].User = "mutated"

	got, ok, err := m.Load(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.PWM != 90 || len(got.Turns) != 1 || got.Turns[0].User != "up" {
		t.Fatalf("loaded = %+v", got)
	}

	if err := m.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.Load(ctx, "s1"); ok {
		t.Fatalf("load after delete succeeded")
	}
}
