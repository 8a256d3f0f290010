package agent

import "testing"

func TestObserveReachesThresholdAfterFourEmptyTicks(t *testing.T) {
	f := newFixture(t, "")

	for i := 0; i < 3; i++ {
		if f.orch.observe(0) {
			t.Fatalf("teardown triggered at tick %d, want tick 4", i+1)
		}
	}
	if !f.orch.observe(0) {
		t.Fatalf("teardown not triggered at tick 4")
	}
}

func TestObserveResetsOnPositiveCount(t *testing.T) {
	f := newFixture(t, "")

	f.orch.observe(0)
	f.orch.observe(0)
	f.orch.observe(0)
	if f.orch.IdleTicks() != 3 {
		t.Fatalf("IdleTicks() = %d, want 3", f.orch.IdleTicks())
	}

	if f.orch.observe(2) {
		t.Fatalf("positive count must not trigger teardown")
	}
	if f.orch.IdleTicks() != 0 {
		t.Fatalf("IdleTicks() = %d after positive count, want 0", f.orch.IdleTicks())
	}
}

// Three empty ticks, one occupied tick, four empty ticks: the counter runs
// 1,2,3,0,1,2,3,4 and teardown fires only on the eighth tick.
func TestObserveDebouncesBriefReconnects(t *testing.T) {
	f := newFixture(t, "")

	counts := []int{0, 0, 0, 1, 0, 0, 0, 0}
	wantTicks := []int{1, 2, 3, 0, 1, 2, 3, 4}
	wantTeardown := []bool{false, false, false, false, false, false, false, true}

	for i, c := range counts {
		got := f.orch.observe(c)
		if got != wantTeardown[i] {
			t.Fatalf("tick %d: teardown = %v, want %v", i+1, got, wantTeardown[i])
		}
		if f.orch.IdleTicks() != wantTicks[i] {
			t.Fatalf("tick %d: IdleTicks() = %d, want %d", i+1, f.orch.IdleTicks(), wantTicks[i])
		}
	}
}

func TestObserveNeverTriggersWhileOccupied(t *testing.T) {
	f := newFixture(t, "")

	for i := 0; i < 20; i++ {
		if f.orch.observe(1) {
			t.Fatalf("teardown triggered with a participant present")
		}
	}
	if f.orch.IdleTicks() != 0 {
		t.Fatalf("IdleTicks() = %d, want 0", f.orch.IdleTicks())
	}
}
