// Command formantd is a demo harness for the formant-shifting spectral
// processor. It stands in for the three external collaborators the
// core spec treats as out of scope: a Parameter Source (YAML config,
// optionally reseeded by the offline estimator), a Visualization Sink
// (a WebSocket stream of snapshots), and an Audio I/O Adapter (WAV
// file render or HTTP upload).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "formantd",
		Short: "Formant-shifting spectral processor demo harness",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
