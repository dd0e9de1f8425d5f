package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Dump raw CAN traffic",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := initClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		sub := c.Subscribe(ctx)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-c.Adapter().Err():
				return err
			case frame, ok := <-sub.Chan():
				if !ok {
					return nil
				}
				fmt.Printf("%s %s\n", time.Now().Format("15:04:05.00000"), frame.ColorString())
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
