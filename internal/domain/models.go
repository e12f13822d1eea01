package domain

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/Flarenzy/subnet-calculator/internal/ipv4"
	"go4.org/netipx"
)

type RecordID string

type SessionID string

// SubnetRecord is one node of a partition tree. Everything below Prefix is
// derived from Network and Prefix when the record is built.
type SubnetRecord struct {
	ID          RecordID
	ParentID    RecordID
	Network     ipv4.Addr
	Prefix      ipv4.Prefix
	Netmask     ipv4.Addr
	Broadcast   ipv4.Addr
	FirstUsable ipv4.Addr
	LastUsable  ipv4.Addr
	Hosts       int64
}

func newRecord(id, parent RecordID, network ipv4.Addr, prefix ipv4.Prefix) (SubnetRecord, error) {
	network, err := ipv4.Mask(network, prefix)
	if err != nil {
		return SubnetRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	netmask, err := ipv4.NetmaskFor(prefix)
	if err != nil {
		return SubnetRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	broadcast, err := ipv4.BroadcastFor(network, prefix)
	if err != nil {
		return SubnetRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	first, last, err := ipv4.UsableRange(network, prefix)
	if err != nil {
		return SubnetRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hosts, err := ipv4.UsableHosts(prefix)
	if err != nil {
		return SubnetRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return SubnetRecord{
		ID:          id,
		ParentID:    parent,
		Network:     network,
		Prefix:      prefix,
		Netmask:     netmask,
		Broadcast:   broadcast,
		FirstUsable: first,
		LastUsable:  last,
		Hosts:       hosts,
	}, nil
}

// CIDR renders the record as "a.b.c.d/p".
func (r SubnetRecord) CIDR() string {
	return fmt.Sprintf("%s/%d", r.Network, r.Prefix)
}

func (r SubnetRecord) RangeString() string {
	return r.Network.String() + " - " + r.Broadcast.String()
}

func (r SubnetRecord) UsableString() string {
	return r.FirstUsable.String() + " - " + r.LastUsable.String()
}

func (r SubnetRecord) NetipPrefix() netip.Prefix {
	return netip.PrefixFrom(r.Network.Netip(), int(r.Prefix))
}

func (r SubnetRecord) IPRange() netipx.IPRange {
	return netipx.IPRangeFrom(r.Network.Netip(), r.Broadcast.Netip())
}

// Session is one caller's private partition tree.
type Session struct {
	ID        SessionID
	Owner     string
	Tree      *Tree
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan is what every planner operation hands back: the session's sorted
// subnets and whether the requested change was applied.
type Plan struct {
	SessionID SessionID
	Outcome   Outcome
	Subnets   []SubnetRecord
}
