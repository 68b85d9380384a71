package smelt

import (
	"errors"
	"slices"
	"testing"
)

func TestTopology_Binary(t *testing.T) {
	topo, err := BinaryTopology(7)
	if err != nil {
		t.Fatal(err)
	}
	if topo.NumNodes() != 7 || topo.Root() != 0 || topo.Name() != "binary" {
		t.Fatalf("n=%d root=%d name=%q", topo.NumNodes(), topo.Root(), topo.Name())
	}
	for i := 1; i < 7; i++ {
		if p := topo.Parent(i); p != (i-1)/2 {
			t.Errorf("parent(%d) = %d", i, p)
		}
	}
	if kids := topo.Children(1); !slices.Equal(kids, []int{3, 4}) {
		t.Errorf("children(1) = %v", kids)
	}
	if topo.ChildIndex(4) != 1 || topo.ChildIndex(3) != 0 {
		t.Error("child index")
	}
	if !topo.IsLeaf(6) || topo.IsLeaf(2) {
		t.Error("IsLeaf")
	}
	if d := topo.Depth(); d != 2 {
		t.Errorf("depth = %d", d)
	}
	if _, err := BinaryTopology(0); !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("BinaryTopology(0) = %v", err)
	}
	one, err := BinaryTopology(1)
	if err != nil || one.Depth() != 0 || !one.IsLeaf(0) {
		t.Errorf("single node: %v", err)
	}
}

func TestTopology_ChildrenIsCopy(t *testing.T) {
	topo, err := BinaryTopology(3)
	if err != nil {
		t.Fatal(err)
	}
	kids := topo.Children(0)
	kids[0] = 99
	if topo.Children(0)[0] != 1 {
		t.Fatal("Children exposed internal slice")
	}
}

func TestTopology_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		parents []int
		opts    []TopologyOption
	}{
		{"empty", nil, nil},
		{"two roots", []int{NoParent, NoParent}, nil},
		{"no root", []int{1, 0}, nil},
		{"self parent", []int{NoParent, 1}, nil},
		{"out of range", []int{NoParent, 5}, nil},
		{"detached cycle", []int{NoParent, 2, 1}, nil},
		{"member not child of leader", []int{NoParent, 0, 1},
			[]TopologyOption{WithClusters(Cluster{Leader: 0, Members: []int{2}})}},
		{"two clusters", []int{NoParent, 0, 0},
			[]TopologyOption{WithClusters(
				Cluster{Leader: 0, Members: []int{1}},
				Cluster{Leader: 0, Members: []int{2}},
			)}},
		{"empty cluster", []int{NoParent, 0},
			[]TopologyOption{WithClusters(Cluster{Leader: 0})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTopology(tc.name, tc.parents, tc.opts...); !errors.Is(err, ErrInvalidTopology) {
				t.Fatalf("err = %v, want ErrInvalidTopology", err)
			}
		})
	}
}

func TestTopology_Clusters(t *testing.T) {
	topo, err := NewTopology("c", []int{NoParent, 0, 0, 0, 1},
		WithClusters(Cluster{Leader: 0, Members: []int{1, 2}}))
	if err != nil {
		t.Fatal(err)
	}
	if topo.ClusterOf(0) != 0 || topo.ClusterOf(2) != 0 || topo.ClusterOf(3) != -1 {
		t.Fatal("ClusterOf")
	}
	if !topo.isLeader(0) || !topo.isMember(1) || topo.isMember(0) || topo.isMember(4) {
		t.Fatal("leader/member flags")
	}
	cs := topo.Clusters()
	cs[0].Members[0] = 4
	if topo.Clusters()[0].Members[0] != 1 {
		t.Fatal("Clusters exposed internal slice")
	}
}

// 0 is the root with children 1 and 2; 3 is the child of 1.
var fourNodeModel = [][]int{
	{0, 1, 2, 0},
	{99, 0, 0, 1},
	{99, 0, 0, 0},
	{0, 99, 0, 0},
}

func TestTopology_FromModel(t *testing.T) {
	topo, err := FromModel("four", fourNodeModel)
	if err != nil {
		t.Fatal(err)
	}
	if topo.Root() != 0 || topo.Parent(3) != 1 || topo.Parent(2) != 0 {
		t.Fatalf("root=%d parent(3)=%d", topo.Root(), topo.Parent(3))
	}
	if !slices.Equal(topo.Children(0), []int{1, 2}) {
		t.Fatalf("children(0) = %v", topo.Children(0))
	}
}

func TestTopology_FromModelChildOrder(t *testing.T) {
	// codes order the children, not column ids
	model := [][]int{
		{0, 2, 1},
		{99, 0, 0},
		{99, 0, 0},
	}
	topo, err := FromModel("order", model)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(topo.Children(0), []int{2, 1}) {
		t.Fatalf("children(0) = %v", topo.Children(0))
	}
}

func TestTopology_FromModelClusters(t *testing.T) {
	// 0 leads a cluster with 1 and 2; 3 is an ordinary child of 0.
	model := [][]int{
		{0, 70, 70, 1},
		{50, 0, 0, 0},
		{50, 0, 0, 0},
		{99, 0, 0, 0},
	}
	topo, err := FromModel("cluster", model)
	if err != nil {
		t.Fatal(err)
	}
	if topo.Parent(1) != 0 || topo.Parent(2) != 0 {
		t.Fatal("members not attached to leader")
	}
	if !slices.Equal(topo.Children(0), []int{3, 1, 2}) {
		t.Fatalf("children(0) = %v", topo.Children(0))
	}
	cs := topo.Clusters()
	if len(cs) != 1 || cs[0].Leader != 0 || !slices.Equal(cs[0].Members, []int{1, 2}) {
		t.Fatalf("clusters = %+v", cs)
	}

	back, err := FromModel("again", topo.Model())
	if err != nil {
		t.Fatal(err)
	}
	for i := range 4 {
		if back.Parent(i) != topo.Parent(i) {
			t.Fatalf("round trip parent(%d) = %d, want %d", i, back.Parent(i), topo.Parent(i))
		}
	}
	if len(back.Clusters()) != 1 {
		t.Fatal("round trip lost cluster")
	}
}

func TestTopology_FromModelInvalid(t *testing.T) {
	cases := map[string][][]int{
		"empty":           {},
		"ragged":          {{0, 1}, {99}},
		"self edge":       {{1}},
		"unknown code":    {{0, 42 + 50}, {99, 0}},
		"child no parent": {{0, 1}, {0, 0}},
		"two parents":     {{0, 0, 1}, {0, 0, 1}, {99, 99, 0}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromModel(name, m); !errors.Is(err, ErrInvalidTopology) {
				t.Fatalf("err = %v, want ErrInvalidTopology", err)
			}
		})
	}
}
