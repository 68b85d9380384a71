package smelt

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Context binds a Topology to the rings, cluster barriers and participant
// handles a group of goroutines runs its collectives on.
//
// Every participant drives only its own Node. Destroy must not race with
// collectives in flight.
type Context struct {
	name     string
	topo     *Topology
	cfg      Config
	log      *slog.Logger
	nodes    []*Node
	clusters []*ClusterBarrier
	channels []*Channel

	destroyOnce sync.Once
	destroyed   atomic.Bool
}

// Node is one participant's handle in a Context.
//
// Tree links to ordinary children run over rings. A cluster leader
// reaches its members through the cluster's Channel and ClusterBarrier
// instead, so members have no ring to their parent.
type Node struct {
	_        noCopy
	ctx      *Context
	id       int
	root     bool
	parent   *QueuePair    // nil at the root and for cluster members
	children []*QueuePair  // ring children in topology order
	lead     *ChannelOwner // the cluster n leads
	join     *ChannelPeer  // the cluster n is a member of
	seat     *ClusterSeat
	busy     atomic.Bool
	scratch  Message
	buf      [SlotPayloadSize]byte
}

// Create builds a context for topo. Options apply on top of
// DefaultConfig.
func Create(topo *Topology, opts ...func(*Config)) (*Context, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return CreateWithConfig(topo, cfg)
}

// CreateWithConfig builds a context for topo with an explicit
// configuration.
func CreateWithConfig(topo *Topology, cfg Config) (*Context, error) {
	if topo == nil {
		return nil, fmt.Errorf("%w: nil topology", ErrInvalidTopology)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := topo.NumNodes()
	if n > cfg.MaxNodes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyNodes, n, cfg.MaxNodes)
	}
	if len(cfg.Cores) > 0 && len(cfg.Cores) < n {
		return nil, fmt.Errorf("%w: %d cores for %d participants", ErrInvalidConfig, len(cfg.Cores), n)
	}
	if cfg.Arch == nil {
		cfg.Arch = DefaultArch()
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}
	name := cfg.Name
	if name == "" {
		name = topo.Name()
	}

	c := &Context{
		name:  name,
		topo:  topo,
		cfg:   cfg,
		log:   cfg.Logger.With("context", name),
		nodes: make([]*Node, n),
	}
	for id := range c.nodes {
		nd := &Node{ctx: c, id: id, root: id == topo.Root()}
		nd.scratch.data = nd.buf[:]
		c.nodes[id] = nd
	}

	qopts := []QueueOption{
		QueueArch(cfg.Arch),
		QueueSpinBudget(cfg.SpinBudget),
		QueueSleepAfter(cfg.SleepAfter),
	}
	for id, kids := range topo.children {
		for _, kid := range kids {
			if topo.isMember(kid) {
				continue
			}
			down, up, err := NewQueuePair(cfg.QueueSlots, qopts...)
			if err != nil {
				c.destroyQueues()
				return nil, err
			}
			c.nodes[id].children = append(c.nodes[id].children, down)
			c.nodes[kid].parent = up
		}
	}

	for ci, cl := range topo.clusters {
		b, err := NewClusterBarrier(1+len(cl.Members), cfg.RoundMax, cfg.SpinBudget)
		if err != nil {
			c.destroyQueues()
			return nil, err
		}
		ch, err := NewChannel(len(cl.Members), cfg.QueueSlots, qopts...)
		if err != nil {
			c.destroyQueues()
			return nil, err
		}
		c.clusters = append(c.clusters, b)
		c.channels = append(c.channels, ch)
		c.log.Debug("cluster", "cluster", ci, "leader", cl.Leader, "members", cl.Members)
	}
	for id, nd := range c.nodes {
		ci := topo.clusterOf[id]
		switch {
		case topo.isLeader(id):
			nd.seat = c.clusters[ci].Seat(0)
			nd.lead = c.channels[ci].Owner()
		case topo.isMember(id):
			pos := slices.Index(topo.clusters[ci].Members, id)
			nd.seat = c.clusters[ci].Seat(pos + 1)
			nd.join = c.channels[ci].Peer(pos)
		}
	}

	if r := cfg.Registry; r != nil {
		if err := r.Register(c); err != nil {
			c.destroyQueues()
			return nil, err
		}
	}
	c.log.Debug("context created",
		"nodes", n,
		"root", topo.Root(),
		"depth", topo.Depth(),
		"queue_slots", cfg.QueueSlots,
		"clusters", len(c.clusters),
	)
	return c, nil
}

// Name returns the context name: Config.Name, or the topology name.
func (c *Context) Name() string { return c.name }

// Topology returns the tree the context was built for.
func (c *Context) Topology() *Topology { return c.topo }

// Config returns the effective configuration.
func (c *Context) Config() Config { return c.cfg }

// NumNodes returns the number of participants.
func (c *Context) NumNodes() int { return len(c.nodes) }

// Node returns the handle of participant id.
func (c *Context) Node(id int) (*Node, error) {
	if c.destroyed.Load() {
		return nil, ErrContextDestroyed
	}
	if id < 0 || id >= len(c.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchNode, id)
	}
	return c.nodes[id], nil
}

// Root returns the handle of the root participant.
func (c *Context) Root() *Node { return c.nodes[c.topo.Root()] }

// Destroyed reports whether Destroy has been called.
func (c *Context) Destroyed() bool { return c.destroyed.Load() }

// Destroy releases every ring and removes the context from its registry.
// It is idempotent.
func (c *Context) Destroy() {
	c.destroyOnce.Do(func() {
		c.destroyed.Store(true)
		c.destroyQueues()
		if r := c.cfg.Registry; r != nil {
			r.unregister(c)
		}
		c.log.Debug("context destroyed")
	})
}

func (c *Context) destroyQueues() {
	for _, nd := range c.nodes {
		if nd.parent != nil {
			nd.parent.Destroy()
		}
		for _, q := range nd.children {
			q.Destroy()
		}
	}
	for _, ch := range c.channels {
		ch.Destroy()
	}
}

// ID returns the participant id.
func (n *Node) ID() int { return n.id }

// Context returns the context the node belongs to.
func (n *Node) Context() *Context { return n.ctx }

// IsRoot reports whether n is the root of the tree.
func (n *Node) IsRoot() bool { return n.root }

// enter claims the node for one collective.
func (n *Node) enter() error {
	if n.ctx.destroyed.Load() {
		return ErrContextDestroyed
	}
	if !n.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: participant %d", ErrCollectiveInProgress, n.id)
	}
	return nil
}

func (n *Node) exit(op string, err error) error {
	n.busy.Store(false)
	switch {
	case err == nil:
	case n.ctx.destroyed.Load():
		return ErrContextDestroyed
	case errors.Is(err, ErrSpinBudget):
		n.ctx.log.Warn("spin budget exhausted", "node", n.id, "op", op, "err", err)
	}
	return err
}
