package lazyinit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func orderedRegistry(t *testing.T, computed *[]string, mu *sync.Mutex) *Registry {
	t.Helper()

	reg := NewRegistry()
	record := func(name string) ComputeFunc {
		return func(ctx context.Context, inst *Instance) (any, error) {
			mu.Lock()
			*computed = append(*computed, name)
			mu.Unlock()
			return name, nil
		}
	}

	reg.MustDefine("a", record("a"))
	reg.MustDefine("b", record("b"), WithDependencies("a"))
	reg.MustDefine("c", record("c"), WithDependencies("a"))
	reg.MustDefine("d", record("d"), WithDependencies("b", "c"))
	return reg
}

func TestResolveDependencyOrdering(t *testing.T) {
	var computed []string
	var mu sync.Mutex

	reg := orderedRegistry(t, &computed, &mu)
	inst := reg.NewInstance()

	if _, err := inst.Value(context.Background(), "d"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(computed) != 4 {
		t.Fatalf("expected 4 computations, got %v", computed)
	}
	if computed[0] != "a" {
		t.Errorf("expected a to compute first, got %v", computed)
	}
	if computed[3] != "d" {
		t.Errorf("expected d to compute last, got %v", computed)
	}

	seen := map[string]int{}
	for _, name := range computed {
		seen[name]++
	}
	if seen["a"] != 1 {
		t.Errorf("expected a to compute exactly once despite two dependents, got %d", seen["a"])
	}

	for _, name := range []string{"a", "b", "c", "d"} {
		if !inst.IsComputed(name) {
			t.Errorf("expected %s to report computed", name)
		}
	}
}

func TestResolveDeclarationOrder(t *testing.T) {
	var computed []string
	var mu sync.Mutex

	reg := orderedRegistry(t, &computed, &mu)
	inst := reg.NewInstance()

	if _, err := inst.Value(context.Background(), "d"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// d declares [b, c]; b must be triggered before c.
	bIdx, cIdx := -1, -1
	for i, name := range computed {
		switch name {
		case "b":
			bIdx = i
		case "c":
			cIdx = i
		}
	}
	if bIdx == -1 || cIdx == -1 || bIdx > cIdx {
		t.Errorf("expected b before c per declaration order, got %v", computed)
	}
}

func TestResolveCycleDetection(t *testing.T) {
	reg := NewRegistry()
	reg.MustDefine("x", func(ctx context.Context, inst *Instance) (any, error) {
		return "x", nil
	}, WithDependencies("y"))
	reg.MustDefine("y", func(ctx context.Context, inst *Instance) (any, error) {
		return "y", nil
	}, WithDependencies("x"))

	inst := reg.NewInstance()
	_, err := inst.Value(context.Background(), "x")

	var cycleErr *DependencyCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *DependencyCycleError, got %v", err)
	}
	if !strings.Contains(err.Error(), "x") || !strings.Contains(err.Error(), "y") {
		t.Errorf("expected cycle message to name both attributes, got %q", err.Error())
	}
}

func TestResolveCycleDetectionConcurrent(t *testing.T) {
	reg := NewRegistry()
	reg.MustDefine("x", func(ctx context.Context, inst *Instance) (any, error) {
		return "x", nil
	}, WithDependencies("y"))
	reg.MustDefine("y", func(ctx context.Context, inst *Instance) (any, error) {
		return "y", nil
	}, WithDependencies("x"))

	inst := reg.NewInstance()

	const goroutines = 10
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = inst.Value(context.Background(), "x")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		var cycleErr *DependencyCycleError
		if !errors.As(err, &cycleErr) {
			t.Errorf("goroutine %d: expected *DependencyCycleError, got %v", i, err)
		}
	}
}

func TestResolveDoesNotFalsePositiveAcrossGoroutines(t *testing.T) {
	// Two goroutines resolving the same diamond concurrently must never see
	// each other's in-progress names as a cycle.
	var computed []string
	var mu sync.Mutex

	reg := orderedRegistry(t, &computed, &mu)

	const iterations = 50
	for it := 0; it < iterations; it++ {
		inst := reg.NewInstance()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = inst.Value(context.Background(), "d")
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("iteration %d goroutine %d: unexpected error %v", it, i, err)
			}
		}
	}
}

func TestResolutionOrderIsDirectOnly(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.AddDependency("b", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddDependency("c", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ResolutionOrder("c")
	if len(order) != 1 || order[0] != "b" {
		t.Errorf("expected direct list [b], got %v", order)
	}
	if got := g.ResolutionOrder("missing"); got != nil {
		t.Errorf("expected nil for unregistered name, got %v", got)
	}
}

func TestAddDependencyKeepsDuplicatesAndOrder(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.AddDependency("sum", "a", "b", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.ResolutionOrder("sum")
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "a" {
		t.Errorf("expected declaration order with duplicates kept, got %v", order)
	}
}

func TestAddDependencyRefreshesDependents(t *testing.T) {
	g := NewDependencyGraph()
	if err := g.AddDependency("report", "data"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Registering data after report already refers to it must keep report's
	// cached order consistent.
	if err := g.AddDependency("data", "source"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order := g.ResolutionOrder("report"); len(order) != 1 || order[0] != "data" {
		t.Errorf("expected report order [data], got %v", order)
	}
	if order := g.ResolutionOrder("data"); len(order) != 1 || order[0] != "source" {
		t.Errorf("expected data order [source], got %v", order)
	}
}

func TestAddDependencyValidatesNames(t *testing.T) {
	g := NewDependencyGraph()

	var invalidErr *InvalidIdentifierError
	if err := g.AddDependency("9lives", "a"); !errors.As(err, &invalidErr) {
		t.Errorf("expected *InvalidIdentifierError for leading digit, got %v", err)
	}
	if err := g.AddDependency("ok", "not ok"); !errors.As(err, &invalidErr) {
		t.Errorf("expected *InvalidIdentifierError for space in dependency, got %v", err)
	}
	if err := g.AddDependency("valid?", "also_valid!"); err != nil {
		t.Errorf("expected trailing ? and ! to be accepted, got %v", err)
	}
}

func TestResolvePropagatesComputationFailure(t *testing.T) {
	boom := errors.New("dependency failed")

	reg := NewRegistry()
	reg.MustDefine("base", func(ctx context.Context, inst *Instance) (any, error) {
		return nil, boom
	})
	reg.MustDefine("top", func(ctx context.Context, inst *Instance) (any, error) {
		return "top", nil
	}, WithDependencies("base"))

	inst := reg.NewInstance()
	_, err := inst.Value(context.Background(), "top")

	if err != boom {
		t.Fatalf("expected the dependency's own error unwrapped, got %v", err)
	}
	if inst.IsComputed("top") {
		t.Error("expected top to remain uncomputed when its dependency fails")
	}
}

func TestResolveSkipsComputedDependencies(t *testing.T) {
	var baseCalls atomic.Int32

	reg := NewRegistry()
	reg.MustDefine("base", func(ctx context.Context, inst *Instance) (any, error) {
		baseCalls.Add(1)
		return 1, nil
	})
	reg.MustDefine("left", func(ctx context.Context, inst *Instance) (any, error) {
		return 2, nil
	}, WithDependencies("base"))
	reg.MustDefine("right", func(ctx context.Context, inst *Instance) (any, error) {
		return 3, nil
	}, WithDependencies("base"))

	inst := reg.NewInstance()
	ctx := context.Background()

	if _, err := inst.Value(ctx, "left"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := inst.Value(ctx, "right"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if baseCalls.Load() != 1 {
		t.Errorf("expected shared dependency to compute once, got %d", baseCalls.Load())
	}
}
