package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer(t *testing.T) {
	t.Run("Coalesces Burst", func(t *testing.T) {
		d := New(30 * time.Millisecond)
		var calls atomic.Int32
		var last atomic.Int32

		for i := 1; i <= 5; i++ {
			v := int32(i)
			d.Call(func() {
				calls.Add(1)
				last.Store(v)
			})
		}

		time.Sleep(120 * time.Millisecond)

		if got := calls.Load(); got != 1 {
			t.Errorf("expected 1 call, got %d", got)
		}
		if got := last.Load(); got != 5 {
			t.Errorf("expected last call to win, got %d", got)
		}
	})

	t.Run("Separate Windows", func(t *testing.T) {
		d := New(20 * time.Millisecond)
		var calls atomic.Int32

		d.Call(func() { calls.Add(1) })
		time.Sleep(80 * time.Millisecond)
		d.Call(func() { calls.Add(1) })
		time.Sleep(80 * time.Millisecond)

		if got := calls.Load(); got != 2 {
			t.Errorf("expected 2 calls, got %d", got)
		}
	})

	t.Run("Flush", func(t *testing.T) {
		d := New(time.Hour)
		ran := false

		d.Call(func() { ran = true })
		if !d.Pending() {
			t.Fatal("expected pending call")
		}

		if !d.Flush() {
			t.Error("expected Flush to report a run")
		}
		if !ran {
			t.Error("expected function to run on Flush")
		}
		if d.Pending() {
			t.Error("expected nothing pending after Flush")
		}
		if d.Flush() {
			t.Error("second Flush should not run anything")
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		d := New(20 * time.Millisecond)
		var calls atomic.Int32

		d.Call(func() { calls.Add(1) })
		if !d.Cancel() {
			t.Error("expected Cancel to report a pending call")
		}

		time.Sleep(60 * time.Millisecond)
		if got := calls.Load(); got != 0 {
			t.Errorf("cancelled call should not run, got %d", got)
		}
		if d.Cancel() {
			t.Error("nothing should be pending")
		}
	})

	t.Run("Stop", func(t *testing.T) {
		d := New(10 * time.Millisecond)
		var calls atomic.Int32

		d.Call(func() { calls.Add(1) })
		d.Stop()
		d.Call(func() { calls.Add(1) })

		time.Sleep(40 * time.Millisecond)
		if got := calls.Load(); got != 0 {
			t.Errorf("stopped debouncer should not run, got %d", got)
		}
	})
}
