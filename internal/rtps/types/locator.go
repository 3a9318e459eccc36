package types

import (
	"fmt"
	"net"
)

// LocatorKind identifies the transport a Locator addresses.
type LocatorKind int32

const (
	LocatorKindInvalid LocatorKind = -1
	LocatorKindUDPv4   LocatorKind = 1
	LocatorKindUDPv6   LocatorKind = 2
)

// Locator addresses a transport endpoint: a kind, a port, and a
// 16-octet address (IPv4 addresses occupy the last 4 octets).
type Locator struct {
	Kind    LocatorKind
	Port    uint32
	Address [16]byte
}

// LocatorInvalid is the reserved "no locator" value.
var LocatorInvalid = Locator{Kind: LocatorKindInvalid}

// NewUDPv4Locator builds a Locator for an IPv4 UDP endpoint.
func NewUDPv4Locator(ip net.IP, port uint32) Locator {
	var addr [16]byte
	v4 := ip.To4()
	copy(addr[12:], v4)
	return Locator{Kind: LocatorKindUDPv4, Port: port, Address: addr}
}

// UDPAddr returns the net.UDPAddr this locator addresses, valid only for
// LocatorKindUDPv4/UDPv6.
func (l Locator) UDPAddr() *net.UDPAddr {
	switch l.Kind {
	case LocatorKindUDPv4:
		return &net.UDPAddr{IP: net.IP(l.Address[12:16]), Port: int(l.Port)}
	case LocatorKindUDPv6:
		ip := make(net.IP, 16)
		copy(ip, l.Address[:])
		return &net.UDPAddr{IP: ip, Port: int(l.Port)}
	default:
		return nil
	}
}

func (l Locator) String() string {
	if a := l.UDPAddr(); a != nil {
		return a.String()
	}
	return fmt.Sprintf("locator(kind=%d,port=%d)", l.Kind, l.Port)
}

// DefaultMulticastAddress is the default RTPS metatraffic multicast group
// (§4.5).
var DefaultMulticastAddress = net.IPv4(239, 255, 0, 1)

const (
	portBase = 7400
	portGain = 250
)

// PortBuiltinMulticast computes the SPDP multicast port for domain d
// (§4.5 formula).
func PortBuiltinMulticast(domainID int) uint32 {
	return uint32(portBase + portGain*domainID)
}

// PortBuiltinUnicast computes the metatraffic unicast port for domain d
// and participant index pid.
func PortBuiltinUnicast(domainID, participantID int) uint32 {
	return uint32(portBase + portGain*domainID + 10 + 2*participantID)
}

// PortUserUnicast computes the user-traffic unicast port for domain d and
// participant index pid.
func PortUserUnicast(domainID, participantID int) uint32 {
	return uint32(portBase + portGain*domainID + 11 + 2*participantID)
}
