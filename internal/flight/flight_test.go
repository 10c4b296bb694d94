package flight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroup_SharedExecution(t *testing.T) {
	var g Group[string]
	var calls atomic.Int64
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func(ctx context.Context) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		return "tokens", nil
	}

	// First caller starts the execution and blocks inside fn.
	results := make(chan string, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := g.Do(context.Background(), fn)
		if err != nil {
			t.Errorf("Do() error = %v", err)
		}
		results <- v
	}()
	<-started

	// Nine more callers join the same flight; none of them may invoke fn.
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := g.Do(context.Background(), func(ctx context.Context) (string, error) {
				t.Error("joined caller invoked the action")
				return "", nil
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			results <- v
		}()
	}

	// Give the joiners a moment to park on the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	if got := calls.Load(); got != 1 {
		t.Errorf("action invoked %d times, want 1", got)
	}
	n := 0
	for v := range results {
		n++
		if v != "tokens" {
			t.Errorf("caller got %q, want %q", v, "tokens")
		}
	}
	if n != 10 {
		t.Errorf("got %d results, want 10", n)
	}
}

func TestGroup_SharedError(t *testing.T) {
	var g Group[int]
	wantErr := errors.New("refresh rejected")
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := g.Do(context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 0, wantErr
		})
		errs <- err
	}()
	<-started

	joining := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(joining)
		_, err := g.Do(context.Background(), func(ctx context.Context) (int, error) {
			t.Error("second caller invoked the action")
			return 0, nil
		})
		errs <- err
	}()

	// Let the second caller park on the in-flight call before settling it.
	<-joining
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("caller got error %v, want %v", err, wantErr)
		}
	}
}

func TestGroup_RearmsAfterSettle(t *testing.T) {
	var g Group[int]
	var calls atomic.Int64

	fn := func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}

	v1, err := g.Do(context.Background(), fn)
	if err != nil || v1 != 1 {
		t.Fatalf("first Do() = %d, %v", v1, err)
	}

	// A fresh call after settlement runs the action again rather than
	// serving the stale result.
	v2, err := g.Do(context.Background(), fn)
	if err != nil || v2 != 2 {
		t.Fatalf("second Do() = %d, %v, want 2", v2, err)
	}
}

func TestGroup_RearmsAfterError(t *testing.T) {
	var g Group[int]
	var calls atomic.Int64

	_, err := g.Do(context.Background(), func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	_, err = g.Do(context.Background(), func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Do() after failure: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("action invoked %d times, want 2", calls.Load())
	}
}

func TestGroup_WaiterCancellation(t *testing.T) {
	var g Group[int]
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := g.Do(context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 42, nil
		})
		if err != nil || v != 42 {
			t.Errorf("initiator Do() = %d, %v", v, err)
		}
	}()
	<-started

	// A waiter with a cancelled context gives up without cancelling the
	// shared execution.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, func(ctx context.Context) (int, error) {
		t.Error("waiter invoked the action")
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("waiter error = %v, want context.Canceled", err)
	}

	close(release)
	wg.Wait()
}
