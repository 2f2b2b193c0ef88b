package components

import (
	"context"
	"testing"
)

type fakeView struct{ name string }

func TestRegistryResolveKnownName(t *testing.T) {
	r := NewRegistry()
	r.Register("Users/Show", func() Component { return &fakeView{name: "Users/Show"} })
	c, err := r.Resolve(context.Background(), "Users/Show")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if v, ok := c.(*fakeView); !ok || v.name != "Users/Show" {
		t.Fatalf("unexpected component %v", c)
	}
}

func TestRegistryResolveUnknownName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve(context.Background(), "Nope")
	if err == nil || !IsComponentNotFound(err) {
		t.Fatalf("expected component-not-found, got %v", err)
	}
}

func TestRegistryResolveHonorsContext(t *testing.T) {
	r := NewRegistry()
	r.Register("X", func() Component { return struct{}{} })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx, "X"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("b", func() Component { return nil })
	r.Register("a", func() Component { return nil })
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names %v", names)
	}
}
