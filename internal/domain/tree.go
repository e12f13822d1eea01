package domain

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/Flarenzy/subnet-calculator/internal/ipv4"
	"github.com/gaissmai/bart"
	"github.com/google/uuid"
)

// Defaults used by Reset.
const (
	DefaultNetwork = "192.168.0.0"
	DefaultPrefix  = "24"
)

var defaultNetwork = ipv4.AddrFrom4([4]byte{192, 168, 0, 0})

const defaultPrefix ipv4.Prefix = 24

type node struct {
	rec SubnetRecord
	// children are both empty for a live leaf and both set once divided.
	children [2]RecordID
}

func (n *node) leaf() bool {
	return n.children[0] == ""
}

// Tree is an arena of subnet records keyed by id. Leaves form the live
// collection; divided records stay in the arena so a join can revive them
// with their original id and ancestry.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	nodes map[RecordID]*node
	newID func() RecordID
}

type TreeOption func(*Tree)

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() RecordID) TreeOption {
	return func(t *Tree) {
		t.newID = fn
	}
}

// NewTree returns a tree holding the default 192.168.0.0/24 root.
func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{
		nodes: map[RecordID]*node{},
		newID: func() RecordID { return RecordID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t
}

// Initialize replaces the whole tree with a single root. On error the tree
// is left unchanged.
func (t *Tree) Initialize(network ipv4.Addr, prefix ipv4.Prefix) ([]SubnetRecord, error) {
	root, err := newRecord(t.newID(), "", network, prefix)
	if err != nil {
		return nil, err
	}
	t.nodes = map[RecordID]*node{root.ID: {rec: root}}
	return t.Subnets(), nil
}

func (t *Tree) Reset() []SubnetRecord {
	subnets, err := t.Initialize(defaultNetwork, defaultPrefix)
	if err != nil {
		panic(fmt.Sprintf("default subnet: %v", err))
	}
	return subnets
}

// Subnets returns the live records ordered by network address.
func (t *Tree) Subnets() []SubnetRecord {
	out := make([]SubnetRecord, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.leaf() {
			out = append(out, n.rec)
		}
	}
	slices.SortFunc(out, func(a, b SubnetRecord) int {
		return cmp.Compare(a.Network, b.Network)
	})
	return out
}

// Record looks up a live record.
func (t *Tree) Record(id RecordID) (SubnetRecord, error) {
	n, err := t.live(id)
	if err != nil {
		return SubnetRecord{}, err
	}
	return n.rec, nil
}

// FindByCIDR returns the live record for network/prefix.
func (t *Tree) FindByCIDR(network ipv4.Addr, prefix ipv4.Prefix) (SubnetRecord, error) {
	for _, n := range t.nodes {
		if n.leaf() && n.rec.Network == network && n.rec.Prefix == prefix {
			return n.rec, nil
		}
	}
	return SubnetRecord{}, fmt.Errorf("%w: %s/%d", ErrSubnetNotFound, network, prefix)
}

// Divide splits a live record into two halves one bit longer.
func (t *Tree) Divide(id RecordID) (Outcome, error) {
	n, err := t.live(id)
	if err != nil {
		return Outcome{}, err
	}
	if n.rec.Prefix >= ipv4.Bits {
		return rejected(fmt.Sprintf("%s cannot be divided", n.rec.CIDR())), nil
	}

	prefix := n.rec.Prefix + 1
	first, err := newRecord(t.newID(), id, n.rec.Network, prefix)
	if err != nil {
		return Outcome{}, err
	}
	second, err := newRecord(t.newID(), id, ipv4.Successor(first.Broadcast), prefix)
	if err != nil {
		return Outcome{}, err
	}

	t.nodes[first.ID] = &node{rec: first}
	t.nodes[second.ID] = &node{rec: second}
	n.children = [2]RecordID{first.ID, second.ID}
	return applied(), nil
}

// Join merges a live record and its sibling back into their parent. The
// parent comes back with its original id and its own parent link.
func (t *Tree) Join(id RecordID) (Outcome, error) {
	n, err := t.live(id)
	if err != nil {
		return Outcome{}, err
	}
	if n.rec.ParentID == "" {
		return rejected(fmt.Sprintf("%s has no parent to join into", n.rec.CIDR())), nil
	}
	parent, ok := t.nodes[n.rec.ParentID]
	if !ok || parent.leaf() {
		return Outcome{}, fmt.Errorf("%w: parent %s of %s", ErrSubnetNotFound, n.rec.ParentID, id)
	}
	for _, childID := range parent.children {
		child, ok := t.nodes[childID]
		if !ok {
			return Outcome{}, fmt.Errorf("%w: child %s of %s", ErrSubnetNotFound, childID, parent.rec.ID)
		}
		if !child.leaf() {
			return rejected(fmt.Sprintf("sibling %s is divided", child.rec.CIDR())), nil
		}
	}

	first := t.nodes[parent.children[0]].rec
	rec, err := newRecord(parent.rec.ID, parent.rec.ParentID, first.Network, first.Prefix-1)
	if err != nil {
		return Outcome{}, err
	}
	for _, childID := range parent.children {
		t.removeSubtree(childID)
	}
	parent.rec = rec
	parent.children = [2]RecordID{}
	return applied(), nil
}

// Locate returns the live record whose range holds addr.
func (t *Tree) Locate(addr ipv4.Addr) (SubnetRecord, bool) {
	var tbl bart.Table[RecordID]
	for id, n := range t.nodes {
		if n.leaf() {
			tbl.Insert(n.rec.NetipPrefix(), id)
		}
	}
	id, ok := tbl.Lookup(addr.Netip())
	if !ok {
		return SubnetRecord{}, false
	}
	return t.nodes[id].rec, true
}

// Clone returns a deep copy sharing the id generator.
func (t *Tree) Clone() *Tree {
	nodes := make(map[RecordID]*node, len(t.nodes))
	for id, n := range t.nodes {
		cp := *n
		nodes[id] = &cp
	}
	return &Tree{nodes: nodes, newID: t.newID}
}

// Len is the number of records in the arena, divided ones included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) live(id RecordID) (*node, error) {
	n, ok := t.nodes[id]
	if !ok || !n.leaf() {
		return nil, fmt.Errorf("%w: %s", ErrSubnetNotFound, id)
	}
	return n, nil
}

func (t *Tree) removeSubtree(id RecordID) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	if !n.leaf() {
		for _, childID := range n.children {
			t.removeSubtree(childID)
		}
	}
	delete(t.nodes, id)
}

func (t *Tree) ids() []RecordID {
	return slices.Sorted(maps.Keys(t.nodes))
}
