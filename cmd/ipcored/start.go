package main

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	ipconfig "ipcore/internal/config"
	"ipcore/internal/metricssrv"
	"ipcore/internal/obslog"
	"ipcore/pkg/netstack/link"
	"ipcore/pkg/netstack/service"
)

var (
	device string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingress core",
	Long:  "Load the configured interfaces and instances and begin pumping frames through the ingress pipeline.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart()
	},
}

func init() {
	startCmd.Flags().StringVar(&device, "device", "", "capture device to read frames from (defaults to an in-memory simulated link)")
}

func runStart() error {
	cfg, err := ipconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	base := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Logger.Level); err == nil {
		base.SetLevel(lvl)
	}
	log := obslog.New(base)

	arp := link.NewARPTable()

	var src link.Source
	if device == "" {
		src = link.NewSimLink(net.HardwareAddr{0x02, 0, 0, 0, 0, 1}, arp)
	} else {
		pl, err := OpenPcapLink(device, 65535, true)
		if err != nil {
			return fmt.Errorf("failed to open capture device %s: %w", device, err)
		}
		defer pl.Close()
		src = pl
	}

	svc := service.New(src, arp, log)

	interfaces := make(map[string]*service.Interface, len(cfg.Interfaces))
	for _, ic := range cfg.Interfaces {
		ifc := service.NewInterface(ic.Name, ic.Address, ic.SubnetMask, ic.Promiscuous)
		svc.AddInterface(ifc)
		interfaces[ic.Name] = ifc
	}

	for _, inst := range cfg.Instances {
		ifc, ok := interfaces[inst.Interface]
		if !ok {
			return fmt.Errorf("instance references unknown interface %q", inst.Interface)
		}
		i := svc.NewInstance()
		i.Configure(ipconfig.ToInstanceConfig(inst))
		ifc.Bind(i)
	}

	metrics := metricssrv.NewServer(metricsAddr, log)
	metrics.Start()

	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start link source: %w", err)
	}

	log.Info("ingress core running")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		svc.Tick()
	}
	return nil
}
