package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacetec/godiag/pkg/uds"
)

var dtcCmd = &cobra.Command{
	Use:   "dtc",
	Short: "Trouble code operations",
}

var useOBD bool

var dtcReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Read stored trouble codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if useOBD {
			c, obd, err := initOBD(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			codes, err := obd.StoredDTCs(ctx)
			if err != nil {
				return err
			}
			if len(codes) == 0 {
				fmt.Println("no stored trouble codes")
				return nil
			}
			for _, code := range codes {
				fmt.Println(code)
			}
			return nil
		}

		c, session, err := initSession(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		defer session.Close()
		dtcs, err := session.ReadDTCs(ctx, uds.StatusConfirmed)
		if err != nil {
			return err
		}
		if len(dtcs) == 0 {
			fmt.Println("no stored trouble codes")
			return nil
		}
		for _, dtc := range dtcs {
			fmt.Printf("%s  status 0x%02X  %s\n", dtc.Code, dtc.Status, dtc.System())
		}
		return nil
	},
}

var dtcClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear stored trouble codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if useOBD {
			c, obd, err := initOBD(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := obd.ClearDTCs(ctx); err != nil {
				return err
			}
			fmt.Println("trouble codes cleared")
			return nil
		}

		c, session, err := initSession(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		defer session.Close()
		if err := session.ClearDTCs(ctx, 0xFFFFFF); err != nil {
			return err
		}
		fmt.Println("trouble codes cleared")
		return nil
	},
}

func init() {
	dtcCmd.PersistentFlags().BoolVar(&useOBD, "obd", false, "use J1979 modes instead of UDS")
	dtcCmd.AddCommand(dtcReadCmd, dtcClearCmd)
	rootCmd.AddCommand(dtcCmd)
}
