package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacetec/godiag"
)

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List available adapters",
	Run: func(cmd *cobra.Command, args []string) {
		for _, info := range godiag.ListAdapters() {
			port := ""
			if info.RequiresSerialPort {
				port = " (requires --port)"
			}
			fmt.Printf("%-14s %s%s\n", info.Name, info.Description, port)
		}
	},
}

func init() {
	rootCmd.AddCommand(adaptersCmd)
}
