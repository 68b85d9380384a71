package smelt

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/smelt/internal/affinity"
)

// Run starts one goroutine per participant of c, locks each to its OS
// thread and pins it to Config.Cores[id] when cores are configured. Once
// every participant is placed, each calls fn with its Node. Run returns
// after all of them have returned, with the first error encountered.
//
// A participant that fails leaves its peers spinning on messages it will
// never send. Configure a spin budget when fn may fail part way.
func Run(c *Context, fn func(*Node) error) error {
	if c.Destroyed() {
		return ErrContextDestroyed
	}
	cores := c.cfg.Cores
	var start rally
	var g errgroup.Group
	for _, nd := range c.nodes {
		g.Go(func() error {
			runtime.LockOSThread()
			if len(cores) > 0 {
				// A pinned thread stays locked and exits with the goroutine.
				if err := affinity.Pin(cores[nd.id]); err != nil {
					c.log.Warn("pin failed", "node", nd.id, "core", cores[nd.id], "err", err)
				}
			} else {
				defer runtime.UnlockOSThread()
			}
			start.meet(len(c.nodes))
			c.log.Debug("participant start", "node", nd.id)
			err := fn(nd)
			c.log.Debug("participant exit", "node", nd.id, "err", err)
			if err != nil {
				return fmt.Errorf("participant %d: %w", nd.id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
