// Package main is the entry point for the tmetrics CLI tool, which ingests
// game telemetry CSV exports and computes kill, rivalry and activity metrics.
package main

import "github.com/pable/go-telemetry-metrics/cmd"

func main() {
	cmd.Execute()
}
