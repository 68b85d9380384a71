package smelt

import (
	"fmt"
	"slices"
)

// NoParent is the parent id of the root.
const NoParent = -1

// Model matrix codes. Entry model[i][j]:
//
//	1..49   j is the k-th child of i
//	50..69  i is a member of the cluster led by j
//	70..89  j is a member of the cluster led by i
//	99      j is the parent of i
const (
	modelChildMin    = 1
	modelChildMax    = 49
	modelMemberOfMin = 50
	modelMemberOfMax = 69
	modelLeaderOfMin = 70
	modelLeaderOfMax = 89
	modelParent      = 99
)

// Cluster is a set of participants sharing one coherence domain. They
// synchronize through a shared-memory counter barrier instead of queue
// notifications; Leader represents the cluster in the rest of the tree and
// is the tree parent of every member.
type Cluster struct {
	Leader  int   `json:"leader"`
	Members []int `json:"members"`
}

// Topology is the static tree the collectives run on. It is immutable
// after construction and may be shared by any number of contexts.
type Topology struct {
	name      string
	parent    []int
	children  [][]int
	childIdx  []int
	root      int
	clusters  []Cluster
	clusterOf []int
}

type topologyConfig struct {
	clusters []Cluster
}

// TopologyOption configures NewTopology.
type TopologyOption func(*topologyConfig)

// WithClusters declares coherence domains. Every member's parent must be
// its cluster's leader.
func WithClusters(clusters ...Cluster) TopologyOption {
	return func(c *topologyConfig) {
		c.clusters = append(c.clusters, clusters...)
	}
}

// NewTopology builds a tree from a parent table: parents[i] is the parent
// of participant i, NoParent for the single root. Children are ordered by
// id.
func NewTopology(name string, parents []int, opts ...TopologyOption) (*Topology, error) {
	n := len(parents)
	if n == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidTopology)
	}
	children := make([][]int, n)
	for i, p := range parents {
		if p == NoParent {
			continue
		}
		if p < 0 || p >= n || p == i {
			return nil, fmt.Errorf("%w: participant %d has parent %d", ErrInvalidTopology, i, p)
		}
		children[p] = append(children[p], i)
	}
	var cfg topologyConfig
	for _, o := range opts {
		o(&cfg)
	}
	return buildTopology(name, slices.Clone(parents), children, cfg.clusters)
}

// BinaryTopology returns the complete binary tree over n participants:
// the children of i are 2i+1 and 2i+2.
func BinaryTopology(n int) (*Topology, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d participants", ErrInvalidTopology, n)
	}
	parents := make([]int, n)
	parents[0] = NoParent
	for i := 1; i < n; i++ {
		parents[i] = (i - 1) / 2
	}
	return NewTopology("binary", parents)
}

// FromModel builds a tree from a machine model: a square matrix using the
// model codes (see modelParent and friends). Child order follows the
// child codes. Cluster members without an explicit parent entry become
// children of their leader.
func FromModel(name string, model [][]int) (*Topology, error) {
	n := len(model)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty model", ErrInvalidTopology)
	}
	parents := make([]int, n)
	for i := range parents {
		parents[i] = NoParent
	}
	type rank struct{ order, id int }
	ranked := make([][]rank, n)
	leaders := make(map[int]*Cluster)
	var leaderOrder []int
	addMember := func(leader, member int) {
		c, ok := leaders[leader]
		if !ok {
			c = &Cluster{Leader: leader}
			leaders[leader] = c
			leaderOrder = append(leaderOrder, leader)
		}
		if !slices.Contains(c.Members, member) {
			c.Members = append(c.Members, member)
		}
	}

	for i, row := range model {
		if len(row) != n {
			return nil, fmt.Errorf("%w: model row %d has %d entries, want %d", ErrInvalidTopology, i, len(row), n)
		}
	}
	for i, row := range model {
		for j, v := range row {
			switch {
			case v == 0:
			case i == j:
				return nil, fmt.Errorf("%w: self edge at %d", ErrInvalidTopology, i)
			case v >= modelChildMin && v <= modelChildMax:
				if model[j][i] != modelParent {
					return nil, fmt.Errorf("%w: %d lists child %d but %d does not list it as parent",
						ErrInvalidTopology, i, j, j)
				}
				ranked[i] = append(ranked[i], rank{v, j})
			case v == modelParent:
				if parents[i] != NoParent && parents[i] != j {
					return nil, fmt.Errorf("%w: %d has parents %d and %d", ErrInvalidTopology, i, parents[i], j)
				}
				parents[i] = j
			case v >= modelMemberOfMin && v <= modelMemberOfMax:
				addMember(j, i)
			case v >= modelLeaderOfMin && v <= modelLeaderOfMax:
				addMember(i, j)
			default:
				return nil, fmt.Errorf("%w: unknown model code %d at [%d][%d]", ErrInvalidTopology, v, i, j)
			}
		}
	}

	var clusters []Cluster
	for _, l := range leaderOrder {
		c := leaders[l]
		slices.Sort(c.Members)
		for _, m := range c.Members {
			switch parents[m] {
			case NoParent:
				parents[m] = l
				ranked[l] = append(ranked[l], rank{modelChildMax + 1 + m, m})
			case l:
			default:
				return nil, fmt.Errorf("%w: cluster member %d has parent %d, not leader %d",
					ErrInvalidTopology, m, parents[m], l)
			}
		}
		clusters = append(clusters, *c)
	}

	children := make([][]int, n)
	for i, rs := range ranked {
		slices.SortStableFunc(rs, func(a, b rank) int { return a.order - b.order })
		for _, r := range rs {
			children[i] = append(children[i], r.id)
		}
	}
	for i, p := range parents {
		if p != NoParent && !slices.Contains(children[p], i) {
			return nil, fmt.Errorf("%w: %d names parent %d which does not list it", ErrInvalidTopology, i, p)
		}
	}
	return buildTopology(name, parents, children, clusters)
}

func buildTopology(name string, parents []int, children [][]int, clusters []Cluster) (*Topology, error) {
	n := len(parents)
	t := &Topology{
		name:      name,
		parent:    parents,
		children:  children,
		childIdx:  make([]int, n),
		root:      NoParent,
		clusterOf: make([]int, n),
	}
	for i, p := range parents {
		if p != NoParent {
			continue
		}
		if t.root != NoParent {
			return nil, fmt.Errorf("%w: roots %d and %d", ErrInvalidTopology, t.root, i)
		}
		t.root = i
	}
	if t.root == NoParent {
		return nil, fmt.Errorf("%w: no root", ErrInvalidTopology)
	}
	for _, cs := range children {
		for idx, c := range cs {
			t.childIdx[c] = idx
		}
	}

	// every node must be reachable from the root exactly once
	seen := make([]bool, n)
	stack := []int{t.root}
	visited := 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return nil, fmt.Errorf("%w: cycle through %d", ErrInvalidTopology, id)
		}
		seen[id] = true
		visited++
		stack = append(stack, children[id]...)
	}
	if visited != n {
		return nil, fmt.Errorf("%w: %d of %d participants unreachable from root %d",
			ErrInvalidTopology, n-visited, n, t.root)
	}

	for i := range t.clusterOf {
		t.clusterOf[i] = -1
	}
	for ci, c := range clusters {
		if c.Leader < 0 || c.Leader >= n {
			return nil, fmt.Errorf("%w: cluster leader %d", ErrInvalidTopology, c.Leader)
		}
		if len(c.Members) == 0 {
			return nil, fmt.Errorf("%w: cluster %d has no members", ErrInvalidTopology, c.Leader)
		}
		for _, id := range append([]int{c.Leader}, c.Members...) {
			if id < 0 || id >= n {
				return nil, fmt.Errorf("%w: cluster member %d", ErrInvalidTopology, id)
			}
			if t.clusterOf[id] != -1 {
				return nil, fmt.Errorf("%w: participant %d in two clusters", ErrInvalidTopology, id)
			}
			t.clusterOf[id] = ci
		}
		for _, m := range c.Members {
			if parents[m] != c.Leader {
				return nil, fmt.Errorf("%w: cluster member %d has parent %d, not leader %d",
					ErrInvalidTopology, m, parents[m], c.Leader)
			}
		}
		t.clusters = append(t.clusters, Cluster{Leader: c.Leader, Members: slices.Clone(c.Members)})
	}
	return t, nil
}

// Name returns the topology name.
func (t *Topology) Name() string { return t.name }

// NumNodes returns the number of participants.
func (t *Topology) NumNodes() int { return len(t.parent) }

// Root returns the root id.
func (t *Topology) Root() int { return t.root }

// Parent returns the parent of id, or NoParent for the root.
func (t *Topology) Parent(id int) int { return t.parent[id] }

// Children returns the ordered children of id.
func (t *Topology) Children(id int) []int { return slices.Clone(t.children[id]) }

// ChildIndex returns the position of id among its siblings.
func (t *Topology) ChildIndex(id int) int { return t.childIdx[id] }

// IsLeaf reports whether id has no children.
func (t *Topology) IsLeaf(id int) bool { return len(t.children[id]) == 0 }

// Clusters returns the declared coherence domains.
func (t *Topology) Clusters() []Cluster {
	out := make([]Cluster, len(t.clusters))
	for i, c := range t.clusters {
		out[i] = Cluster{Leader: c.Leader, Members: slices.Clone(c.Members)}
	}
	return out
}

// ClusterOf returns the index of the cluster id belongs to, as leader or
// member, or -1.
func (t *Topology) ClusterOf(id int) int { return t.clusterOf[id] }

// isMember reports whether id synchronizes with its parent through the
// cluster barrier.
func (t *Topology) isMember(id int) bool {
	ci := t.clusterOf[id]
	return ci >= 0 && t.clusters[ci].Leader != id
}

// isLeader reports whether id leads a cluster.
func (t *Topology) isLeader(id int) bool {
	ci := t.clusterOf[id]
	return ci >= 0 && t.clusters[ci].Leader == id
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Topology) Depth() int {
	depth := 0
	var walk func(id, d int)
	walk = func(id, d int) {
		depth = max(depth, d)
		for _, c := range t.children[id] {
			walk(c, d+1)
		}
	}
	walk(t.root, 0)
	return depth
}

// Model renders the topology back into the machine model matrix.
func (t *Topology) Model() [][]int {
	n := t.NumNodes()
	m := make([][]int, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	for i, cs := range t.children {
		k := 0
		for _, c := range cs {
			if t.isMember(c) {
				continue
			}
			k++
			m[i][c] = k
			m[c][i] = modelParent
		}
	}
	for ci, c := range t.clusters {
		for _, mem := range c.Members {
			m[c.Leader][mem] = modelLeaderOfMin + ci%(modelLeaderOfMax-modelLeaderOfMin+1)
			m[mem][c.Leader] = modelMemberOfMin + ci%(modelMemberOfMax-modelMemberOfMin+1)
		}
	}
	return m
}
