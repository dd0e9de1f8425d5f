package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var udsTimeout time.Duration

var udsCmd = &cobra.Command{
	Use:   "uds <service-id> [param-byte]...",
	Short: "Send a raw UDS request",
	Example: `  diagtool uds 0x3E 0x00
  diagtool uds 0x22 0xF1 0x90`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		raw := make([]byte, len(args))
		for i, arg := range args {
			v, err := strconv.ParseUint(arg, 0, 8)
			if err != nil {
				return fmt.Errorf("invalid byte %q: %w", arg, err)
			}
			raw[i] = byte(v)
		}

		c, session, err := initSession(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		defer session.Close()

		resp, err := session.Request(ctx, raw[0], raw[1:], udsTimeout)
		if resp != nil {
			fmt.Println(resp)
		}
		if err != nil {
			return err
		}
		fmt.Printf("data: % X\n", resp.Data)
		return nil
	},
}

func init() {
	udsCmd.Flags().DurationVarP(&udsTimeout, "timeout", "t", 5*time.Second, "response timeout including pending waits")
	rootCmd.AddCommand(udsCmd)
}
