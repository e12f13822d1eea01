package domain

import (
	"errors"
	"fmt"

	"github.com/Flarenzy/subnet-calculator/internal/ipv4"
	"github.com/google/uuid"
	"go4.org/netipx"
)

var ErrCorruptTree = errors.New("corrupt subnet tree")

// Snapshot is the storable form of a Tree.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
}

type SnapshotNode struct {
	ID       RecordID   `json:"id"`
	ParentID RecordID   `json:"parent_id,omitempty"`
	Network  string     `json:"network"`
	Prefix   int        `json:"prefix"`
	Children []RecordID `json:"children,omitempty"`
}

func (t *Tree) Snapshot() Snapshot {
	out := Snapshot{Nodes: make([]SnapshotNode, 0, len(t.nodes))}
	for _, id := range t.ids() {
		n := t.nodes[id]
		sn := SnapshotNode{
			ID:       n.rec.ID,
			ParentID: n.rec.ParentID,
			Network:  n.rec.Network.String(),
			Prefix:   int(n.rec.Prefix),
		}
		if !n.leaf() {
			sn.Children = []RecordID{n.children[0], n.children[1]}
		}
		out.Nodes = append(out.Nodes, sn)
	}
	return out
}

// RestoreTree rebuilds a tree from a snapshot and checks it with Validate.
func RestoreTree(s Snapshot, opts ...TreeOption) (*Tree, error) {
	t := &Tree{
		nodes: make(map[RecordID]*node, len(s.Nodes)),
		newID: func() RecordID { return RecordID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, sn := range s.Nodes {
		network, err := ipv4.ParseAddr(sn.Network)
		if err != nil {
			return nil, fmt.Errorf("%w: node %s: %v", ErrCorruptTree, sn.ID, err)
		}
		rec, err := newRecord(sn.ID, sn.ParentID, network, ipv4.Prefix(sn.Prefix))
		if err != nil {
			return nil, fmt.Errorf("%w: node %s: %v", ErrCorruptTree, sn.ID, err)
		}
		if rec.Network != network {
			return nil, fmt.Errorf("%w: node %s: %s is not a network address", ErrCorruptTree, sn.ID, sn.Network)
		}
		if _, dup := t.nodes[sn.ID]; dup || sn.ID == "" {
			return nil, fmt.Errorf("%w: duplicate or empty id %q", ErrCorruptTree, sn.ID)
		}
		n := &node{rec: rec}
		switch len(sn.Children) {
		case 0:
		case 2:
			n.children = [2]RecordID{sn.Children[0], sn.Children[1]}
		default:
			return nil, fmt.Errorf("%w: node %s has %d children", ErrCorruptTree, sn.ID, len(sn.Children))
		}
		t.nodes[sn.ID] = n
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the structural invariants: every divided record has two
// children one bit longer that tile its range exactly, every parent link is
// backed by that parent's child list, and no two live records overlap.
func (t *Tree) Validate() error {
	if len(t.nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrCorruptTree)
	}

	var live netipx.IPSetBuilder
	liveCount := 0
	for _, id := range t.ids() {
		n := t.nodes[id]

		if n.rec.ParentID != "" {
			parent, ok := t.nodes[n.rec.ParentID]
			if !ok || (parent.children[0] != id && parent.children[1] != id) {
				return fmt.Errorf("%w: %s is not a child of %s", ErrCorruptTree, id, n.rec.ParentID)
			}
		}

		if n.leaf() {
			if n.children[1] != "" {
				return fmt.Errorf("%w: %s has a single child", ErrCorruptTree, id)
			}
			live.AddRange(n.rec.IPRange())
			liveCount++
			continue
		}

		if err := t.checkTiling(n); err != nil {
			return err
		}
	}

	set, err := live.IPSet()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTree, err)
	}
	var total uint64
	for _, r := range set.Ranges() {
		total += rangeSize(r)
	}
	var sum uint64
	for _, rec := range t.Subnets() {
		sum += rangeSize(rec.IPRange())
	}
	if total != sum || liveCount == 0 {
		return fmt.Errorf("%w: live subnets overlap", ErrCorruptTree)
	}
	return nil
}

func (t *Tree) checkTiling(n *node) error {
	var b netipx.IPSetBuilder
	for _, childID := range n.children {
		child, ok := t.nodes[childID]
		if !ok {
			return fmt.Errorf("%w: %s references missing child %s", ErrCorruptTree, n.rec.ID, childID)
		}
		if child.rec.ParentID != n.rec.ID {
			return fmt.Errorf("%w: child %s does not point back to %s", ErrCorruptTree, childID, n.rec.ID)
		}
		if child.rec.Prefix != n.rec.Prefix+1 {
			return fmt.Errorf("%w: child %s has prefix /%d under /%d", ErrCorruptTree, childID, child.rec.Prefix, n.rec.Prefix)
		}
		b.AddRange(child.rec.IPRange())
	}
	first, second := t.nodes[n.children[0]].rec, t.nodes[n.children[1]].rec
	if first.IPRange().Overlaps(second.IPRange()) {
		return fmt.Errorf("%w: children of %s overlap", ErrCorruptTree, n.rec.ID)
	}

	set, err := b.IPSet()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTree, err)
	}
	var parent netipx.IPSetBuilder
	parent.AddRange(n.rec.IPRange())
	want, err := parent.IPSet()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTree, err)
	}
	if !set.Equal(want) {
		return fmt.Errorf("%w: children of %s do not tile %s", ErrCorruptTree, n.rec.ID, n.rec.CIDR())
	}
	return nil
}

func rangeSize(r netipx.IPRange) uint64 {
	from, _ := ipv4.AddrFromNetip(r.From())
	to, _ := ipv4.AddrFromNetip(r.To())
	return uint64(to-from) + 1
}
