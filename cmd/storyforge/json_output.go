package main

import (
	"encoding/json"
	"math"
	"time"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// seconds renders a duration as fractional seconds for JSON output.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
