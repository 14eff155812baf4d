// perceptiond runs the in-cabin perception engine.
//
// Usage:
//
//	perceptiond serve   [--addr :8080] [--config cockpit.yaml] [--journal cockpit.db]
//	perceptiond replay  -f recording.jsonl [--remote ws://host:8080/ws/session]
//	perceptiond version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
