package dedup

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestConcurrentCallersShareOneOperation(t *testing.T) {
	d := New()

	var invocations int32
	release := make(chan struct{})
	started := make(chan struct{})

	op := func() (interface{}, error) {
		atomic.AddInt32(&invocations, 1)
		close(started)
		<-release
		return "payload", nil
	}

	const callers = 10
	results := make([]interface{}, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = d.Do("alpha-vantage|AAPL|daily", op)
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&invocations); n != 1 {
		t.Fatalf("operation invoked %d times, want 1", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error: %v", i, errs[i])
		}
		if results[i] != "payload" {
			t.Errorf("caller %d result = %v, want payload", i, results[i])
		}
	}
}

func TestFailureSharedByAllWaiters(t *testing.T) {
	d := New()

	wantErr := errors.New("provider unavailable")
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = d.Do("key", func() (interface{}, error) {
				close(started)
				<-release
				return nil, wantErr
			})
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("caller %d error = %v, want %v", i, err, wantErr)
		}
	}
}

func TestEntryRemovedOnSettlement(t *testing.T) {
	d := New()

	var invocations int
	op := func() (interface{}, error) {
		invocations++
		return invocations, nil
	}

	// Sequential calls with the same key must each run fresh: the
	// deduplicator collapses concurrency, it does not cache.
	for want := 1; want <= 3; want++ {
		v, shared, err := d.Do("key", op)
		if err != nil {
			t.Fatal(err)
		}
		if shared {
			t.Errorf("call %d reported shared, want fresh operation", want)
		}
		if v != want {
			t.Errorf("call %d got stale result %v", want, v)
		}
	}
}

func TestDistinctKeysRunIndependently(t *testing.T) {
	d := New()

	blockedRelease := make(chan struct{})
	blockedStarted := make(chan struct{})
	go d.Do("slow", func() (interface{}, error) {
		close(blockedStarted)
		<-blockedRelease
		return nil, nil
	})
	<-blockedStarted
	defer close(blockedRelease)

	// A different key must not wait on the in-flight "slow" operation.
	v, _, err := d.Do("fast", func() (interface{}, error) { return 42, nil })
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("fast key result = %v, want 42", v)
	}
}
