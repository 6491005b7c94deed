package netstack

// Protocol is an IPv4 upper-layer protocol number.
type Protocol uint8

// Protocol numbers referenced by the core.
const (
	ProtocolICMP Protocol = 1
	ProtocolIGMP Protocol = 2
	ProtocolTCP  Protocol = 6
	ProtocolUDP  Protocol = 17
)

// EtherType identifies the payload carried by an Ethernet frame.
type EtherType uint16

// Common EtherType values.
const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeIPv6 EtherType = 0x86DD
	EtherTypeARP  EtherType = 0x0806
)

// CastType classifies a destination address relative to a receiver.
type CastType uint8

// CastType values, in the order spec.md §3 lists them.
const (
	CastNone CastType = iota
	CastUnicastLocal
	CastLocalBroadcast
	CastSubnetBroadcast
	CastMulticast
	CastPromiscuous
)

func (c CastType) String() string {
	switch c {
	case CastUnicastLocal:
		return "unicast-local"
	case CastLocalBroadcast:
		return "local-broadcast"
	case CastSubnetBroadcast:
		return "subnet-broadcast"
	case CastMulticast:
		return "multicast"
	case CastPromiscuous:
		return "promiscuous"
	default:
		return "none"
	}
}

// IsBroadcast reports whether c is either broadcast variant.
func (c CastType) IsBroadcast() bool {
	return c == CastLocalBroadcast || c == CastSubnetBroadcast
}

// LinkStatus is the outcome the link layer reports alongside a
// received frame.
type LinkStatus uint8

// LinkStatus values.
const (
	LinkStatusOK LinkStatus = iota
	LinkStatusError
	LinkStatusDown
)
