package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ipconfig "ipcore/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Validate configuration and report what would be started",
	Long:  "Load the configured interfaces and instances without starting the ingress core, and report what it would bind.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd)
	},
}

func runStatus(cmd *cobra.Command) error {
	cfg, err := ipconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config: %s\n", configFile)
	fmt.Fprintf(out, "log level: %s\n", cfg.Logger.Level)
	fmt.Fprintf(out, "interfaces: %d\n", len(cfg.Interfaces))
	for _, ic := range cfg.Interfaces {
		fmt.Fprintf(out, "  - %s %s/%s\n", ic.Name, ic.Address, ic.SubnetMask)
	}
	fmt.Fprintf(out, "instances: %d\n", len(cfg.Instances))
	for i, ic := range cfg.Instances {
		fmt.Fprintf(out, "  - #%d on %s, default_protocol=%d\n", i, ic.Interface, ic.DefaultProtocol)
	}
	return nil
}
