// Package config loads the ingress core's interface and instance
// registration from a config file, translating the wire-shaped
// sentinels described in spec.md §6 (dotted-quad addresses, the
// all-ones "receive disabled" receive-timeout) into the Go types the
// rest of the module uses.
package config

import "net"

// ReceiveDisabledSentinel is the all-ones microsecond value
// receive_timeout carries to mean "this instance is send-only"
// (spec.md §9's redesign flag — translated here, at load time, rather
// than carried as a magic number through instance.Config).
const ReceiveDisabledSentinel uint32 = 0xFFFFFFFF

// LoggerConfig configures the structured logger (internal/obslog).
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// IfaceConfig is one configured network interface.
type IfaceConfig struct {
	Name        string     `mapstructure:"name"`
	Address     net.IP     `mapstructure:"address"`
	SubnetMask  net.IPMask `mapstructure:"subnet_mask"`
	Promiscuous bool       `mapstructure:"promiscuous"`
}

// InstanceConfig is one registered IP Instance's configuration
// (spec.md §6's per-instance option list).
type InstanceConfig struct {
	Interface         string   `mapstructure:"interface"`
	AcceptAnyProtocol bool     `mapstructure:"accept_any_protocol"`
	DefaultProtocol   uint8    `mapstructure:"default_protocol"`
	AcceptICMPErrors  bool     `mapstructure:"accept_icmp_errors"`
	AcceptBroadcast   bool     `mapstructure:"accept_broadcast"`
	AcceptPromiscuous bool     `mapstructure:"accept_promiscuous"`
	UseDefaultAddress bool     `mapstructure:"use_default_address"`
	StationAddress    net.IP   `mapstructure:"station_address"`
	SubnetMask        net.IPMask `mapstructure:"subnet_mask"`
	ReceiveTimeoutUS  uint32   `mapstructure:"receive_timeout"`
	TypeOfService     uint8    `mapstructure:"type_of_service"`
	TimeToLive        uint8    `mapstructure:"time_to_live"`
	GroupList         []net.IP `mapstructure:"group_list"`
}

// Config is the top-level configuration document.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"log"`
	Interfaces []IfaceConfig    `mapstructure:"interfaces"`
	Instances  []InstanceConfig `mapstructure:"instances"`
}
