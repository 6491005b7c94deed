package main

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:     "ipcored",
	Short:   "IPv4 ingress core daemon",
	Long:    "ipcored runs the IPv4 ingress pipeline: header validation, fragment reassembly, per-instance acceptance filtering, two-pass demultiplexing, and the aging timer.",
	Version: "0.1.0",
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/ipcored/ipcored.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus /metrics listen address")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
}
