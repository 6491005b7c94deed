package link

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"ipcore/pkg/netstack"
)

// ARP operation codes.
const (
	ARPOperationRequest uint16 = 1
	ARPOperationReply   uint16 = 2
)

// ARPPacketSize is the size of an ARP packet for Ethernet/IPv4 in
// bytes.
const ARPPacketSize = 28

// ARPPacket is a parsed ARP packet for Ethernet/IPv4 resolution.
type ARPPacket struct {
	HardwareType uint16
	ProtocolType uint16
	HardwareSize uint8
	ProtocolSize uint8
	Operation    uint16
	SenderMAC    net.HardwareAddr
	SenderIP     net.IP
	TargetMAC    net.HardwareAddr
	TargetIP     net.IP
}

// ParseARPPacket parses an ARP packet from raw bytes.
func ParseARPPacket(data []byte) (*ARPPacket, error) {
	if len(data) < ARPPacketSize {
		return nil, fmt.Errorf("link: ARP packet too short: %d bytes", len(data))
	}
	return &ARPPacket{
		HardwareType: binary.BigEndian.Uint16(data[0:2]),
		ProtocolType: binary.BigEndian.Uint16(data[2:4]),
		HardwareSize: data[4],
		ProtocolSize: data[5],
		Operation:    binary.BigEndian.Uint16(data[6:8]),
		SenderMAC:    net.HardwareAddr(data[8:14]),
		SenderIP:     net.IP(data[14:18]),
		TargetMAC:    net.HardwareAddr(data[18:24]),
		TargetIP:     net.IP(data[24:28]),
	}, nil
}

// Serialize encodes the ARP packet to wire bytes.
func (p *ARPPacket) Serialize() []byte {
	buf := make([]byte, ARPPacketSize)
	binary.BigEndian.PutUint16(buf[0:2], p.HardwareType)
	binary.BigEndian.PutUint16(buf[2:4], p.ProtocolType)
	buf[4] = p.HardwareSize
	buf[5] = p.ProtocolSize
	binary.BigEndian.PutUint16(buf[6:8], p.Operation)
	copy(buf[8:14], p.SenderMAC)
	copy(buf[14:18], p.SenderIP.To4())
	copy(buf[18:24], p.TargetMAC)
	copy(buf[24:28], p.TargetIP.To4())
	return buf
}

// NewARPRequest builds an ARP request packet.
func NewARPRequest(senderMAC net.HardwareAddr, senderIP, targetIP net.IP) *ARPPacket {
	return &ARPPacket{
		HardwareType: 1,
		ProtocolType: uint16(netstack.EtherTypeIPv4),
		HardwareSize: 6,
		ProtocolSize: 4,
		Operation:    ARPOperationRequest,
		SenderMAC:    senderMAC,
		SenderIP:     senderIP,
		TargetMAC:    net.HardwareAddr{0, 0, 0, 0, 0, 0},
		TargetIP:     targetIP,
	}
}

// ARPTable is a cache of IP-to-MAC mappings, consulted by SimLink to
// resolve where to deliver a simulated frame.
type ARPTable struct {
	mu      sync.Mutex
	entries map[string]net.HardwareAddr
}

// NewARPTable returns an empty ARP table.
func NewARPTable() *ARPTable {
	return &ARPTable{entries: make(map[string]net.HardwareAddr)}
}

// Lookup returns the MAC address cached for ip.
func (t *ARPTable) Lookup(ip net.IP) (net.HardwareAddr, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mac, ok := t.entries[ip.String()]
	return mac, ok
}

// Set records or updates the MAC address for ip.
func (t *ARPTable) Set(ip net.IP, mac net.HardwareAddr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[ip.String()] = mac
}
