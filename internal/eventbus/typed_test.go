package eventbus

import "testing"

func TestTypedBusFanOut(t *testing.T) {
	bus := NewTyped[int]()
	a := bus.Subscribe()
	b := bus.Subscribe()
	for i := 0; i < 3; i++ {
		bus.Publish(i)
	}
	for _, ch := range []<-chan int{a, b} {
		for want := 0; want < 3; want++ {
			if got := <-ch; got != want {
				t.Fatalf("expected %d got %d", want, got)
			}
		}
	}
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTypedWithBuffer[string](2)
	ch := bus.Subscribe()
	bus.Publish("a")
	bus.Publish("b")
	bus.Publish("c")
	if bus.Dropped() != 1 {
		t.Fatalf("expected 1 dropped got %d", bus.Dropped())
	}
	if got := <-ch; got != "a" {
		t.Fatalf("expected a got %s", got)
	}
}

func TestTypedBusDefaultBuffer(t *testing.T) {
	bus := NewTypedWithBuffer[float64](0)
	ch := bus.Subscribe()
	if cap(ch) != DefaultBuffer {
		t.Fatalf("expected buffer %d got %d", DefaultBuffer, cap(ch))
	}
}
