package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacetec/godiag/pkg/uds"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print ECU identification",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, session, err := initSession(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		defer session.Close()

		if err := session.DiagnosticSessionControl(ctx, uds.SessionExtended); err != nil {
			return err
		}

		for _, did := range []uint16{
			uds.DIDVIN,
			uds.DIDECUSerialNumber,
			uds.DIDECUSoftwareVersion,
			uds.DIDECUHardwareNumber,
			uds.DIDSparePartNumber,
		} {
			record, err := session.ReadDataByIdentifier(ctx, did)
			if err != nil {
				continue
			}
			if did == uds.DIDVIN {
				if vin, err := uds.DecodeVIN(record); err == nil {
					fmt.Printf("%-28s %s\n", uds.DIDName(did), vin)
					continue
				}
			}
			fmt.Printf("%-28s %q\n", uds.DIDName(did), record)
		}
		return session.DiagnosticSessionControl(ctx, uds.SessionDefault)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
