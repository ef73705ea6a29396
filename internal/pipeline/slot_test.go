package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/camnode/internal/metrics"
	"github.com/smazurov/camnode/internal/process"
)

const (
	cooperativeScript = "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"
	stubbornScript    = "trap '' INT TERM; sleep 10"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func shRecipe(script string, args ...string) process.Recipe {
	return process.Recipe{Program: "sh", Args: append([]string{"-c", script}, args...)}
}

func newTestSlot(t *testing.T, name SlotName, recipe process.Recipe) *Slot {
	t.Helper()
	slot := NewSlot(name, recipe, testLogger())
	t.Cleanup(func() { slot.Deactivate(100 * time.Millisecond) })
	return slot
}

func TestSlotActivateDeactivate(t *testing.T) {
	slot := newTestSlot(t, SlotCapture, shRecipe(cooperativeScript))

	h, err := slot.Activate(nil)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if !slot.IsActive() {
		t.Fatal("expected slot to be active")
	}

	snap := slot.Snapshot()
	if snap.PID != h.PID() || !snap.Active {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	time.Sleep(50 * time.Millisecond)
	result, stopped := slot.Deactivate(2 * time.Second)
	if !stopped {
		t.Fatal("expected Deactivate to report a stopped process")
	}
	if result.Code != 0 {
		t.Errorf("expected graceful exit, got code %d", result.Code)
	}
	if slot.IsActive() {
		t.Error("expected slot to be inactive")
	}
	if last := slot.Snapshot().LastExit; last == nil || last.PID != h.PID() {
		t.Errorf("expected last exit for pid %d, got %+v", h.PID(), last)
	}
}

func TestSlotActivateTwice(t *testing.T) {
	slot := newTestSlot(t, SlotRelay, shRecipe(cooperativeScript))

	if _, err := slot.Activate(nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := slot.Activate(nil); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestSlotDeactivateEmpty(t *testing.T) {
	slot := newTestSlot(t, SlotTranscode, shRecipe(cooperativeScript))

	if _, stopped := slot.Deactivate(time.Second); stopped {
		t.Error("expected no-op on empty slot")
	}
}

func TestSlotSpawnFailure(t *testing.T) {
	slot := newTestSlot(t, SlotRelay, process.Recipe{Program: "/nonexistent/mediamtx"})

	if _, err := slot.Activate(nil); !errors.Is(err, process.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if slot.IsActive() {
		t.Error("failed spawn must leave the slot empty")
	}
}

func TestSlotClearsExitedProcess(t *testing.T) {
	slot := newTestSlot(t, SlotCapture, shRecipe("exit 2"))

	h, err := slot.Activate(nil)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if _, err := h.Wait(2 * time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if slot.IsActive() {
		t.Error("expected dead process to report inactive")
	}
	last := slot.Snapshot().LastExit
	if last == nil || last.Code != 2 {
		t.Errorf("expected last exit code 2, got %+v", last)
	}

	// A slot whose process died can be reused.
	if _, err := slot.Activate(nil); err != nil {
		t.Errorf("expected reactivation to succeed, got %v", err)
	}
}

func TestSlotRecipeImmutable(t *testing.T) {
	recipe := shRecipe("exit 0")
	slot := NewSlot(SlotRecording, recipe, testLogger())

	recipe.Args[1] = "exit 1"
	if got := slot.Recipe().Args[1]; got != "exit 0" {
		t.Errorf("slot recipe changed with caller's slice: %q", got)
	}

	got := slot.Recipe()
	got.Args[1] = "exit 3"
	if slot.Recipe().Args[1] != "exit 0" {
		t.Error("Recipe() must return a copy")
	}
}

func TestSlotOnExit(t *testing.T) {
	slot := newTestSlot(t, SlotTranscode, shRecipe("exit 5"))
	got := make(chan process.ExitResult, 1)
	slot.onExit = func(name SlotName, r process.ExitResult) {
		if name == SlotTranscode {
			got <- r
		}
	}

	if _, err := slot.Activate(nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	select {
	case r := <-got:
		if r.Code != 5 {
			t.Errorf("expected exit code 5, got %d", r.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for exit callback")
	}
}

func TestSlotSnapshotConcurrentWithExit(t *testing.T) {
	slot := newTestSlot(t, SlotCapture, shRecipe("exit 0"))

	for range 100 {
		h, err := slot.Activate(nil)
		if err != nil {
			t.Fatalf("Activate failed: %v", err)
		}

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					snap := slot.Snapshot()
					if snap.Active && snap.PID == 0 {
						t.Errorf("active snapshot without pid: %+v", snap)
					}
					if !snap.Active {
						return
					}
				}
			}()
		}
		wg.Wait()

		if _, err := h.Wait(2 * time.Second); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
}

func TestSlotRunningGaugeAfterImmediateExit(t *testing.T) {
	slot := newTestSlot(t, SlotRelay, shRecipe("exit 0"))

	for range 20 {
		h, err := slot.Activate(nil)
		if err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		if _, err := h.Wait(2 * time.Second); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
		if got := testutil.ToFloat64(metrics.SlotRunning(string(SlotRelay))); got != 0 {
			t.Fatalf("expected running gauge 0 after exit, got %v", got)
		}
	}
}
