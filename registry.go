package smelt

import (
	"fmt"

	"github.com/llxisdsh/pb"
)

// Registry maps names to live contexts so that independently started
// participants can find the context they belong to. It is safe for
// concurrent use once built by NewRegistry.
type Registry struct {
	m pb.MapOf[string, *Context]
}

// NewRegistry returns an empty registry with its table allocated. A zero
// Registry is not ready for concurrent first use.
func NewRegistry() *Registry {
	r := &Registry{}
	r.m.InitWithOptions(pb.WithPresize(DefaultMaxNodes), pb.WithShrinkEnabled())
	return r
}

// Register adds c under c.Name(). It fails with ErrDuplicateName if the
// name is taken by another context.
func (r *Registry) Register(c *Context) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("%w: empty context name", ErrInvalidConfig)
	}
	_, loaded := r.m.ProcessEntry(
		name,
		func(e *pb.EntryOf[string, *Context]) (*pb.EntryOf[string, *Context], *Context, bool) {
			if e != nil {
				return e, e.Value, e.Value != c
			}
			return &pb.EntryOf[string, *Context]{Value: c}, c, false
		},
	)
	if loaded {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

// Lookup returns the context registered under name.
func (r *Registry) Lookup(name string) (*Context, bool) {
	return r.m.Load(name)
}

// Unregister removes name. It reports whether an entry was removed.
func (r *Registry) Unregister(name string) bool {
	_, ok := r.m.ProcessEntry(
		name,
		func(e *pb.EntryOf[string, *Context]) (*pb.EntryOf[string, *Context], *Context, bool) {
			return nil, nil, e != nil
		},
	)
	return ok
}

// unregister removes c only if it still owns its name.
func (r *Registry) unregister(c *Context) {
	_, _ = r.m.ProcessEntry(
		c.Name(),
		func(e *pb.EntryOf[string, *Context]) (*pb.EntryOf[string, *Context], *Context, bool) {
			if e != nil && e.Value == c {
				return nil, nil, true
			}
			return e, nil, false
		},
	)
}

// Range calls f for every registered context until f returns false.
func (r *Registry) Range(f func(name string, c *Context) bool) {
	r.m.Range(f)
}

// Len returns the number of registered contexts.
func (r *Registry) Len() int {
	return r.m.Size()
}
