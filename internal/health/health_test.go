package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckBasic(t *testing.T) {
	tests := []struct {
		name string
		db   Pinger
		want string
	}{
		{"up", fakePinger{}, "healthy"},
		{"down", fakePinger{err: errors.New("refused")}, "unhealthy"},
		{"missing", nil, "unhealthy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewHealthChecker(tc.db, nil).CheckBasic()
			if got.Status != tc.want || got.Database.Status != tc.want {
				t.Fatalf("got %+v, want %s", got, tc.want)
			}
		})
	}
}

func TestCheckDetailedCache(t *testing.T) {
	d := NewHealthChecker(fakePinger{}, nil).CheckDetailed()
	if d.Cache.Status != "disabled" {
		t.Fatalf("cache = %s, want disabled", d.Cache.Status)
	}

	d = NewHealthChecker(fakePinger{}, func() bool { return false }).CheckDetailed()
	if d.Cache.Status != "unhealthy" || d.Status != "healthy" {
		t.Fatalf("unexpected %+v", d)
	}

	d = NewHealthChecker(fakePinger{}, func() bool { return true }).CheckDetailed()
	if d.Cache.Status != "healthy" {
		t.Fatalf("cache = %s, want healthy", d.Cache.Status)
	}
	if d.Host.DiskPercent < 0 || d.Host.DiskPercent > 100 {
		t.Fatalf("disk percent out of range: %v", d.Host.DiskPercent)
	}
}
