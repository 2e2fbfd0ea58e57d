// Package optionstest checks the behaviour every options driver shares.
package optionstest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pluginscaffold/internal/options/core"
)

// Clocked is implemented by drivers whose transient expiry can be driven by
// a fake clock.
type Clocked interface {
	SetClock(now func() time.Time)
}

// Run exercises a fresh store from newStore for each case.
func Run(t *testing.T, newStore func(t *testing.T) core.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("options", func(t *testing.T) {
		s := newStore(t)
		if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
			t.Fatalf("missing option: ok=%v err=%v", ok, err)
		}
		if err := s.Set(ctx, "scaffold_a", "1"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Set(ctx, "scaffold_a", "2"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if v, ok, err := s.Get(ctx, "scaffold_a"); err != nil || !ok || v != "2" {
			t.Fatalf("get = %q %v %v", v, ok, err)
		}
		if removed, err := s.Delete(ctx, "scaffold_a"); err != nil || !removed {
			t.Fatalf("delete = %v %v", removed, err)
		}
		if removed, err := s.Delete(ctx, "scaffold_a"); err != nil || removed {
			t.Fatalf("second delete = %v %v", removed, err)
		}
	})

	t.Run("names", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"scaffold_b", "other_x", "scaffold_a"} {
			if err := s.Set(ctx, name, "v"); err != nil {
				t.Fatalf("set %s: %v", name, err)
			}
		}
		_ = s.SetTransient(ctx, "scaffold_t", "v", 0)
		names, err := s.Names(ctx, "scaffold_")
		if err != nil {
			t.Fatalf("names: %v", err)
		}
		if diff := cmp.Diff([]string{"scaffold_a", "scaffold_b"}, names); diff != "" {
			t.Fatalf("names mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"", "   ", strings.Repeat("n", core.MaxNameLength+1)} {
			if err := s.Set(ctx, name, "v"); !errors.Is(err, core.ErrInvalidName) {
				t.Errorf("Set(%q) = %v, want ErrInvalidName", name, err)
			}
			if err := s.SetTransient(ctx, name, "v", time.Minute); !errors.Is(err, core.ErrInvalidName) {
				t.Errorf("SetTransient(%q) = %v, want ErrInvalidName", name, err)
			}
		}
	})

	t.Run("transients are separate from options", func(t *testing.T) {
		s := newStore(t)
		if err := s.SetTransient(ctx, "shared", "t", 0); err != nil {
			t.Fatalf("set transient: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "shared"); ok {
			t.Fatalf("transient leaked into options")
		}
		if v, ok, err := s.GetTransient(ctx, "shared"); err != nil || !ok || v != "t" {
			t.Fatalf("get transient = %q %v %v", v, ok, err)
		}
		if removed, err := s.DeleteTransient(ctx, "shared"); err != nil || !removed {
			t.Fatalf("delete transient = %v %v", removed, err)
		}
	})

	t.Run("transient expiry", func(t *testing.T) {
		s := newStore(t)
		c, ok := s.(Clocked)
		if !ok {
			t.Skip("driver has no injectable clock")
		}
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		c.SetClock(func() time.Time { return now })
		if err := s.SetTransient(ctx, "short", "v", time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.SetTransient(ctx, "forever", "v", 0); err != nil {
			t.Fatalf("set: %v", err)
		}
		now = now.Add(59 * time.Second)
		if _, ok, _ := s.GetTransient(ctx, "short"); !ok {
			t.Fatalf("transient expired early")
		}
		now = now.Add(time.Second)
		if _, ok, err := s.GetTransient(ctx, "short"); err != nil || ok {
			t.Fatalf("transient should have expired: ok=%v err=%v", ok, err)
		}
		now = now.Add(365 * 24 * time.Hour)
		if _, ok, _ := s.GetTransient(ctx, "forever"); !ok {
			t.Fatalf("ttl 0 must never expire")
		}
	})
}
