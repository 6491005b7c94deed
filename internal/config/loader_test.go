package config_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipcore/internal/config"
)

func TestLoadParsesAddressesAndInstances(t *testing.T) {
	cfg, err := config.Load("testdata/ipcored.yaml")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	require.Len(t, cfg.Interfaces, 1)
	assert.Equal(t, "eth0", cfg.Interfaces[0].Name)
	assert.True(t, cfg.Interfaces[0].Address.Equal(net.IPv4(10, 0, 0, 2)))
	assert.Equal(t, net.IPMask(net.IPv4(255, 255, 255, 0).To4()), cfg.Interfaces[0].SubnetMask)

	require.Len(t, cfg.Instances, 2)
	assert.EqualValues(t, 17, cfg.Instances[0].DefaultProtocol)
	assert.True(t, cfg.Instances[0].AcceptBroadcast)
}

func TestToReceiveTimeoutTranslatesSentinel(t *testing.T) {
	rt := config.ToReceiveTimeout(config.ReceiveDisabledSentinel)
	assert.True(t, rt.Disabled)

	rt = config.ToReceiveTimeout(30_000_000)
	assert.False(t, rt.Disabled)
	assert.Equal(t, int64(30_000_000), rt.Duration.Microseconds())
}

func TestToInstanceConfigTranslatesFields(t *testing.T) {
	cfg, err := config.Load("testdata/ipcored.yaml")
	require.NoError(t, err)

	ic := config.ToInstanceConfig(cfg.Instances[1])
	assert.True(t, ic.ReceiveTimeout.Disabled)
	assert.True(t, ic.AcceptICMPErrors)
}
