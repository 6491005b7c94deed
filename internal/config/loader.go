package config

import (
	"fmt"
	"net"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"ipcore/pkg/netstack"
	"ipcore/pkg/netstack/instance"
)

// Load reads and decodes the config file at path, applying the
// decode hooks that translate dotted-quad strings into net.IP/
// net.IPMask.
func Load(path string) (*Config, error) {
	v := viper.New()

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	nameWithoutExt := strings.TrimSuffix(filename, ext)

	v.SetConfigName(nameWithoutExt)
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	v.AddConfigPath(dir)

	v.SetEnvPrefix("IPCORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		stringToIPHookFunc(),
		stringToIPMaskHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// stringToIPHookFunc decodes a dotted-quad string into a net.IP.
func stringToIPHookFunc() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(net.IP{}) {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return net.IP(nil), nil
		}
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, fmt.Errorf("config: invalid IPv4 address %q", s)
		}
		return ip.To4(), nil
	}
}

// stringToIPMaskHookFunc decodes a dotted-quad string into a
// net.IPMask.
func stringToIPMaskHookFunc() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(net.IPMask{}) {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return net.IPMask(nil), nil
		}
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, fmt.Errorf("config: invalid subnet mask %q", s)
		}
		return net.IPMask(ip.To4()), nil
	}
}

// ToReceiveTimeout translates the all-ones "receive disabled"
// microsecond sentinel into instance.ReceiveTimeout (spec.md §9).
func ToReceiveTimeout(us uint32) instance.ReceiveTimeout {
	if us == ReceiveDisabledSentinel {
		return instance.ReceiveTimeout{Disabled: true}
	}
	return instance.ReceiveTimeout{Duration: time.Duration(us) * time.Microsecond}
}

// ToInstanceConfig translates one InstanceConfig into the
// instance.Config the core consumes.
func ToInstanceConfig(ic InstanceConfig) instance.Config {
	return instance.Config{
		AcceptAnyProtocol: ic.AcceptAnyProtocol,
		DefaultProtocol:   protocolOf(ic.DefaultProtocol),
		AcceptICMPErrors:  ic.AcceptICMPErrors,
		AcceptBroadcast:   ic.AcceptBroadcast,
		AcceptPromiscuous: ic.AcceptPromiscuous,
		UseDefaultAddress: ic.UseDefaultAddress,
		StationAddress:    ic.StationAddress,
		SubnetMask:        ic.SubnetMask,
		ReceiveTimeout:    ToReceiveTimeout(ic.ReceiveTimeoutUS),
		TypeOfService:     ic.TypeOfService,
		TimeToLive:        ic.TimeToLive,
		GroupList:         ic.GroupList,
	}
}

func protocolOf(n uint8) netstack.Protocol { return netstack.Protocol(n) }
