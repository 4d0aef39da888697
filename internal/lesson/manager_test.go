package lesson

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackzampolin/lectern/internal/testutil"
)

func TestManagerLifecycle(t *testing.T) {
	clock := &manualClock{}
	m := NewManager(newFakeBuilder(1), ManagerConfig{Scheduler: clock.schedule}, testutil.Logger())

	a := m.Create(testDoc(3))
	b := m.Create(testDoc(5))
	if a.ID == b.ID {
		t.Fatal("duplicate session ids")
	}
	if m.Count() != 2 {
		t.Fatalf("Count() = %d", m.Count())
	}

	got, err := m.Get(a.ID)
	if err != nil || got != a {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	if _, err := m.Get("nope"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Get(unknown) = %v", err)
	}

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("List() = %+v", infos)
	}
	ids := map[string]bool{infos[0].ID: true, infos[1].ID: true}
	if !ids[a.ID] || !ids[b.ID] {
		t.Errorf("List() = %+v", infos)
	}

	if err := m.End(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.End(a.ID); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("second End() = %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count() after end = %d", m.Count())
	}
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	clock := &manualClock{}
	m := NewManager(newFakeBuilder(2), ManagerConfig{Scheduler: clock.schedule}, testutil.Logger())

	a := m.Create(testDoc(5))
	b := m.Create(testDoc(5))
	if err := a.Start(context.Background(), "key-a", 1); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(context.Background(), "key-b", 3); err != nil {
		t.Fatal(err)
	}

	a.ForceStop()
	if got := b.Snapshot(); got.Mode != ModeTeaching || got.CurrentPage != 3 {
		t.Errorf("stopping a affected b: %+v", got)
	}
	if got := a.Snapshot().Mode; got != ModePreview {
		t.Errorf("a mode = %s", got)
	}
}

func TestManagerReap(t *testing.T) {
	clock := &manualClock{}
	m := NewManager(newFakeBuilder(1), ManagerConfig{IdleTimeout: time.Minute, Scheduler: clock.schedule}, testutil.Logger())

	s := m.Create(testDoc(3))
	if n := m.Reap(time.Now()); n != 0 {
		t.Fatalf("reaped fresh session: %d", n)
	}
	if n := m.Reap(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("Reap() = %d, want 1", n)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrUnknownSession) {
		t.Error("reaped session still present")
	}

	m.Reconfigure(3, 0)
	m.Create(testDoc(3))
	if n := m.Reap(time.Now().Add(time.Hour)); n != 0 {
		t.Errorf("reaping disabled but reaped %d", n)
	}
}

func TestManagerRunClosesOnCancel(t *testing.T) {
	m := NewManager(newFakeBuilder(1), ManagerConfig{}, testutil.Logger())
	m.Create(testDoc(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if m.Count() != 0 {
		t.Errorf("sessions left after Run: %d", m.Count())
	}
}
