package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBuildDailySpec(t *testing.T) {
	cases := map[string]string{
		"03:00": "0 0 3 * * *",
		"23:59": "0 59 23 * * *",
		"7:05":  "0 5 7 * * *",
	}
	for in, want := range cases {
		got, err := buildDailySpec(in)
		if err != nil || got != want {
			t.Errorf("%s: expected %q, got %q err=%v", in, want, got, err)
		}
	}

	for _, bad := range []string{"", "24:00", "12:60", "noon", "1:2:3"} {
		if _, err := buildDailySpec(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestScheduleRegistersJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	if _, err := s.ScheduleInterval(time.Minute, func() {}); err != nil {
		t.Fatalf("interval: %v", err)
	}
	if _, err := s.ScheduleDaily("03:00", func() {}); err != nil {
		t.Fatalf("daily: %v", err)
	}
	if _, err := s.ScheduleInterval(0, func() {}); err == nil {
		t.Error("zero interval must be rejected")
	}
	if s.Entries() != 2 {
		t.Errorf("expected 2 entries, got %d", s.Entries())
	}

	s.Start()
	s.Stop()
}

func TestJobAppliesTimeoutAndSwallowsErrors(t *testing.T) {
	var deadline bool
	job := Job(context.Background(), "probe", time.Minute, func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return errors.New("store unavailable")
	})

	job()

	if !deadline {
		t.Error("job context should carry a deadline")
	}
}
