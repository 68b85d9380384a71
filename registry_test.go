package smelt

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_Basic(t *testing.T) {
	topo, err := BinaryTopology(2)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	a := mustCreate(t, topo, WithName("a"))
	b := mustCreate(t, topo, WithName("b"))
	if err := r.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(a); err != nil {
		t.Fatalf("re-register same context: %v", err)
	}
	if err := r.Register(b); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d", r.Len())
	}
	seen := map[string]*Context{}
	r.Range(func(name string, c *Context) bool {
		seen[name] = c
		return true
	})
	if seen["a"] != a || seen["b"] != b {
		t.Fatalf("Range saw %v", seen)
	}
	if !r.Unregister("a") || r.Unregister("a") {
		t.Fatal("Unregister")
	}
	if _, ok := r.Lookup("a"); ok {
		t.Fatal("a still registered")
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	topo, err := BinaryTopology(2)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	a := mustCreate(t, topo, WithName("dup"))
	b := mustCreate(t, topo, WithName("dup"))
	if err := r.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(b); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	// only the owner can drop the name through Destroy
	r.unregister(b)
	if got, _ := r.Lookup("dup"); got != a {
		t.Fatal("foreign unregister removed owner")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	topo, err := BinaryTopology(1)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			_, err := Create(topo, WithName(fmt.Sprintf("ctx-%d", i%4)), WithRegistry(r))
			if err != nil {
				if !errors.Is(err, ErrDuplicateName) {
					t.Errorf("Create: %v", err)
				}
				return
			}
			mu.Lock()
			wins++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if wins != 4 || r.Len() != 4 {
		t.Fatalf("wins=%d len=%d, want 4", wins, r.Len())
	}
	var live []*Context
	r.Range(func(_ string, c *Context) bool {
		live = append(live, c)
		return true
	})
	for _, c := range live {
		c.Destroy()
	}
	if r.Len() != 0 {
		t.Fatalf("Len after destroy = %d", r.Len())
	}
}
