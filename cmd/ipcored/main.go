// Command ipcored runs the IPv4 ingress core as a standalone process,
// for manual exercise and scenario demonstration.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
