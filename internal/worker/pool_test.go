package worker_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/dstainton/transcript-flash-cards/internal/worker"
)

func TestPool_RunsEveryJob(t *testing.T) {
	p := worker.NewPool[int](3, 10)

	for i := 1; i <= 5; i++ {
		n := i
		if err := p.Submit(string(rune('a'+i)), func() int { return n * n }); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	p.Close()

	var got []int
	for res := range p.Results() {
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		got = append(got, res.Output)
	}
	sort.Ints(got)

	want := []int{1, 4, 9, 16, 25}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestPool_RecoversPanics(t *testing.T) {
	p := worker.NewPool[string](1, 2)

	p.Submit("bad", func() string { panic("boom") })
	p.Submit("good", func() string { return "ok" })
	p.Close()

	results := map[string]worker.Result[string]{}
	for res := range p.Results() {
		results[res.JobID] = res
	}

	if results["bad"].Err == nil {
		t.Error("expected panic to be reported")
	}
	if results["good"].Output != "ok" {
		t.Errorf("worker did not survive the panic: %+v", results["good"])
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := worker.NewPool[int](1, 1)
	p.Close()
	p.Close()

	if err := p.Submit("late", func() int { return 0 }); !errors.Is(err, worker.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	p.Wait()
}
