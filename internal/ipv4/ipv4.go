// Package ipv4 implements the address arithmetic behind subnet partitioning:
// netmasks, broadcast addresses, neighbouring addresses and host counts over
// plain 32-bit values.
package ipv4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Bits is the width of an IPv4 address.
const Bits = 32

var (
	ErrInvalidPrefix  = errors.New("invalid prefix length")
	ErrInvalidAddress = errors.New("invalid ipv4 address")
)

// Addr is an IPv4 address as an unsigned 32-bit value, most significant octet first.
type Addr uint32

// Prefix is the number of leading network bits, 0 through 32.
type Prefix int

func (p Prefix) Valid() bool {
	return p >= 0 && p <= Bits
}

func (p Prefix) check() error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPrefix, int(p))
	}
	return nil
}

// AddrFrom4 builds an address from four octets.
func AddrFrom4(b [4]byte) Addr {
	return Addr(binary.BigEndian.Uint32(b[:]))
}

// AddrFromNetip converts a netip.Addr. IPv4-mapped IPv6 addresses are unmapped.
func AddrFromNetip(a netip.Addr) (Addr, error) {
	a = a.Unmap()
	if !a.Is4() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAddress, a)
	}
	return AddrFrom4(a.As4()), nil
}

// ParseAddr parses a dot-decimal address.
func ParseAddr(s string) (Addr, error) {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return AddrFromNetip(a)
}

// ParsePrefix parses a prefix length given as a decimal string.
func ParsePrefix(s string) (Prefix, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrefix, s)
	}
	p := Prefix(n)
	if err := p.check(); err != nil {
		return 0, err
	}
	return p, nil
}

// ParseCIDR parses "a.b.c.d/p". The address is returned as written, unmasked.
func ParseCIDR(s string) (Addr, Prefix, error) {
	addr, bits, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: missing prefix in %q", ErrInvalidPrefix, s)
	}
	a, err := ParseAddr(addr)
	if err != nil {
		return 0, 0, err
	}
	p, err := ParsePrefix(bits)
	if err != nil {
		return 0, 0, err
	}
	return a, p, nil
}

func (a Addr) Octets() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(a))
	return b
}

func (a Addr) Netip() netip.Addr {
	return netip.AddrFrom4(a.Octets())
}

func (a Addr) String() string {
	b := a.Octets()
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}

// PrefixOf returns the netip.Prefix for network/p with host bits cleared.
func PrefixOf(network Addr, p Prefix) (netip.Prefix, error) {
	if err := p.check(); err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(network.Netip(), int(p)).Masked(), nil
}

// NetmaskFor returns the mask with the top p bits set.
func NetmaskFor(p Prefix) (Addr, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return netmask(p), nil
}

// BroadcastFor sets every host bit of network. A /32 has no host bits and a
// /0 yields 255.255.255.255.
func BroadcastFor(network Addr, p Prefix) (Addr, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return network | ^netmask(p), nil
}

// Mask clears the host bits of a.
func Mask(a Addr, p Prefix) (Addr, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return a & netmask(p), nil
}

// Successor returns a+1, wrapping 255.255.255.255 to 0.0.0.0.
func Successor(a Addr) Addr {
	return a + 1
}

// Predecessor returns a-1, wrapping 0.0.0.0 to 255.255.255.255.
func Predecessor(a Addr) Addr {
	return a - 1
}

// HostCount is the textbook 2^(32-p) - 2. It is not clamped: a /31 gives 0
// and a /32 gives -1.
func HostCount(p Prefix) (int64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return int64(1)<<(Bits-int(p)) - 2, nil
}

// UsableHosts is the number of assignable addresses. /31 point-to-point links
// (RFC 3021) have two and a /32 host route has one.
func UsableHosts(p Prefix) (int64, error) {
	switch p {
	case 31:
		return 2, nil
	case 32:
		return 1, nil
	}
	return HostCount(p)
}

// UsableRange returns the first and last assignable address of network/p.
func UsableRange(network Addr, p Prefix) (first, last Addr, err error) {
	bcast, err := BroadcastFor(network, p)
	if err != nil {
		return 0, 0, err
	}
	if p >= 31 {
		return network, bcast, nil
	}
	return Successor(network), Predecessor(bcast), nil
}

func netmask(p Prefix) Addr {
	return Addr(^uint32(0) << (Bits - int(p)))
}
