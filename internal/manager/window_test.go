package manager

import (
	"context"
	"reflect"
	"testing"
	"time"

	"procmon/internal/models"
)

func TestRollingWindowKeepsNewest(t *testing.T) {
	w := NewRollingWindow(HistorySize)
	for i := 1; i <= 100; i++ {
		w.Push(float64(i))
	}
	got := w.Snapshot()
	if len(got) != HistorySize {
		t.Fatalf("expected %d values, got %d", HistorySize, len(got))
	}
	for i, v := range got {
		if want := float64(41 + i); v != want {
			t.Fatalf("index %d: expected %.0f, got %.0f", i, want, v)
		}
	}
}

func TestRollingWindowPartialAndCopy(t *testing.T) {
	w := NewRollingWindow(3)
	w.Push(1)
	w.Push(2)
	snap := w.Snapshot()
	if !reflect.DeepEqual(snap, []float64{1, 2}) {
		t.Fatalf("unexpected snapshot %v", snap)
	}
	snap[0] = 99
	if w.Snapshot()[0] != 1 {
		t.Fatalf("snapshot aliases window storage")
	}
	if w.Len() != 2 || w.Cap() != 3 {
		t.Fatalf("Len/Cap = %d/%d", w.Len(), w.Cap())
	}
}

func TestSeriesChartsUnavailableAsZero(t *testing.T) {
	s := NewSeries(4)
	s.Push(models.Sample{CPUPercent: 10, RAMPercent: 20})
	s.Push(models.Sample{CPUPercent: 11, RAMPercent: 21, GPUPercent: models.Float(30), FanRPM: models.Uint(1200)})
	snap := s.Snapshot()
	if !reflect.DeepEqual(snap.GPU, []float64{0, 30}) {
		t.Fatalf("gpu = %v", snap.GPU)
	}
	if !reflect.DeepEqual(snap.Fan, []float64{0, 1200}) {
		t.Fatalf("fan = %v", snap.Fan)
	}
	if !reflect.DeepEqual(snap.CPU, []float64{10, 11}) || !reflect.DeepEqual(snap.RAM, []float64{20, 21}) {
		t.Fatalf("cpu/ram = %v/%v", snap.CPU, snap.RAM)
	}
}

func TestEventQueuePreservesOrder(t *testing.T) {
	q := NewEventQueue()
	base := time.Unix(0, 0)
	for i := 0; i < 5; i++ {
		if !q.Send(models.StatsEvent{Timestamp: base.Add(time.Duration(i) * time.Second)}) {
			t.Fatalf("send %d rejected", i)
		}
	}
	events := q.Drain()
	if len(events) != 5 {
		t.Fatalf("drained %d events", len(events))
	}
	for i, e := range events {
		if want := base.Add(time.Duration(i) * time.Second); !e.EventTime().Equal(want) {
			t.Fatalf("event %d out of order", i)
		}
	}
	if q.Drain() != nil {
		t.Fatalf("queue not empty after drain")
	}
}

func TestEventQueueClose(t *testing.T) {
	q := NewEventQueue()
	q.Send(models.AlertEvent{Scope: models.ScopeSystem, Metric: models.MetricCPU})
	q.Close()
	q.Close()
	if q.Send(models.AlertEvent{}) {
		t.Fatalf("send accepted after close")
	}

	events, ok := q.Next(context.Background())
	if !ok || len(events) != 1 {
		t.Fatalf("pending event lost on close: %v %v", events, ok)
	}
	if _, ok := q.Next(context.Background()); ok {
		t.Fatalf("Next on closed empty queue should report false")
	}
}

func TestEventQueueNextWaits(t *testing.T) {
	q := NewEventQueue()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Send(models.StatsEvent{})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, ok := q.Next(ctx)
	if !ok || len(events) != 1 {
		t.Fatalf("Next = %v, %v", events, ok)
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	if _, ok := q.Next(ctx2); ok {
		t.Fatalf("Next should stop on cancelled context")
	}
}
