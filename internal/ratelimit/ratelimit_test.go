package ratelimit

import (
	"testing"
	"time"
)

func TestTryReserveDoesNotConsumeQuota(t *testing.T) {
	l := New(map[string]Limits{"alpha-vantage": {PerMinute: 2, PerDay: 100}})

	for i := 0; i < 10; i++ {
		if !l.TryReserve("alpha-vantage") {
			t.Fatalf("reserve %d refused without any recorded call", i)
		}
	}

	st := l.Status("alpha-vantage")
	if st.MinuteUsed != 0 || st.DayUsed != 0 {
		t.Errorf("counters moved without Record: %+v", st)
	}
}

func TestCeilingAdmission(t *testing.T) {
	l := New(map[string]Limits{"alpha-vantage": {PerMinute: 5, PerDay: 100}})

	for i := 0; i < 5; i++ {
		if !l.TryReserve("alpha-vantage") {
			t.Fatalf("call %d refused below ceiling", i+1)
		}
		l.Record("alpha-vantage")
	}

	if l.TryReserve("alpha-vantage") {
		t.Error("6th call admitted above minute ceiling of 5")
	}
}

func TestWindowRollover(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New(map[string]Limits{"alpha-vantage": {PerMinute: 1, PerDay: 100}})
	l.now = func() time.Time { return now }

	if !l.TryReserve("alpha-vantage") {
		t.Fatal("first reserve refused")
	}
	l.Record("alpha-vantage")
	if l.TryReserve("alpha-vantage") {
		t.Fatal("reserve admitted at minute ceiling")
	}

	// Advance past the minute boundary: window resets to zero.
	now = now.Add(61 * time.Second)
	st := l.Status("alpha-vantage")
	if st.MinuteUsed != 0 {
		t.Errorf("minute counter = %d after rollover, want 0", st.MinuteUsed)
	}
	if st.DayUsed != 1 {
		t.Errorf("day counter = %d after one minute, want 1", st.DayUsed)
	}
	if !l.TryReserve("alpha-vantage") {
		t.Error("reserve refused after window rollover")
	}
}

func TestDayCeilingIndependentOfMinute(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := New(map[string]Limits{"alpha-vantage": {PerMinute: 100, PerDay: 3}})
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.TryReserve("alpha-vantage") {
			t.Fatalf("call %d refused below day ceiling", i+1)
		}
		l.Record("alpha-vantage")
		now = now.Add(2 * time.Minute)
	}

	if l.TryReserve("alpha-vantage") {
		t.Error("4th call admitted above day ceiling despite fresh minute window")
	}

	now = now.Add(25 * time.Hour)
	if !l.TryReserve("alpha-vantage") {
		t.Error("reserve refused after day rollover")
	}
}

func TestUnknownProviderDefaults(t *testing.T) {
	l := New(nil)

	st := l.Status("unknown")
	if st.MinuteLimit != DefaultLimits.PerMinute || st.DayLimit != DefaultLimits.PerDay {
		t.Errorf("unknown provider limits = %d/%d, want %d/%d",
			st.MinuteLimit, st.DayLimit, DefaultLimits.PerMinute, DefaultLimits.PerDay)
	}

	for i := 0; i < DefaultLimits.PerMinute; i++ {
		if !l.TryReserve("unknown") {
			t.Fatalf("call %d refused below default ceiling", i+1)
		}
		l.Record("unknown")
	}
	if l.TryReserve("unknown") {
		t.Error("call admitted above default minute ceiling")
	}
}

func TestConcurrentRecords(t *testing.T) {
	l := New(map[string]Limits{"alpha-vantage": {PerMinute: 1000, PerDay: 1000}})

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 20; j++ {
				l.Record("alpha-vantage")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	st := l.Status("alpha-vantage")
	if st.MinuteUsed != 200 {
		t.Errorf("minute counter = %d after 200 concurrent records", st.MinuteUsed)
	}
}
