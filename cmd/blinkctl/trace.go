//go:build !rp2040 && !rp2350 && !stm32

package main

import (
	"github.com/spf13/cobra"

	"timerbank-go/services/trace"
)

var (
	traceStream string
	tracePrefix string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Work with recorded bus traces",
}

var traceDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print a CBOR bus trace, one message per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := trace.NewReader(args[0], trace.Filter{Stream: traceStream, Prefix: tracePrefix})
		if err != nil {
			return err
		}
		defer r.Close()
		n, err := trace.Dump(cmd.OutOrStdout(), r)
		if err != nil {
			return err
		}
		logger.Debug("trace dumped", "file", args[0], "records", n)
		return nil
	},
}

func init() {
	traceDumpCmd.Flags().StringVar(&traceStream, "stream", "", "only this recorder stream ID")
	traceDumpCmd.Flags().StringVar(&tracePrefix, "prefix", "", "only topics under this prefix, e.g. timer or serial/stdio")
	traceCmd.AddCommand(traceDumpCmd)
	rootCmd.AddCommand(traceCmd)
}
