package options

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pluginscaffold/internal/config"
	"pluginscaffold/testutil"
)

func TestOnlyOptionsPackageImportsInfra(t *testing.T) {
	testutil.AssertDriversBehindFacade(t, "pluginscaffold/...", "pluginscaffold/internal/options", "pluginscaffold/internal/infra/options")
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.Options
		want Driver
	}{
		{name: "default", want: DriverMemory},
		{name: "memory", cfg: config.Options{Driver: "memory"}, want: DriverMemory},
		{name: "sqlite", cfg: config.Options{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "o.db")}, want: DriverSQLite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer store.Close()
			if store.Driver() != tc.want {
				t.Fatalf("driver = %s, want %s", store.Driver(), tc.want)
			}
			if err := store.Set(ctx, "scaffold_probe", "1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if v, ok, err := store.Get(ctx, "scaffold_probe"); err != nil || !ok || v != "1" {
				t.Fatalf("get = %q %v %v", v, ok, err)
			}
		})
	}
	if _, err := Open(ctx, config.Options{Driver: "redis"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestNewMemoryRejectsInvalidName(t *testing.T) {
	if err := NewMemory().Set(context.Background(), " ", "x"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}
