package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacetec/godiag/pkg/bar"
	"github.com/spacetec/godiag/pkg/obd2"
)

var liveInterval time.Duration

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Poll live sensor data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, obd, err := initOBD(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		supported, err := obd.SupportedPIDs(ctx)
		if err != nil {
			return err
		}
		var pids []byte
		b := bar.New(len(supported), "probing PIDs")
		for _, pid := range supported {
			if _, err := obd2.DecodePID(pid, []byte{0, 0, 0, 0}); err == nil {
				pids = append(pids, pid)
			}
			b.Add(1)
		}
		b.Finish()
		fmt.Println()
		if len(pids) == 0 {
			return fmt.Errorf("no decodable PIDs reported by ECU")
		}

		monitor := obd2.NewMonitor(obd, obd2.MonitorConfig{
			PIDs:     pids,
			Interval: liveInterval,
			OnSample: func(s obd2.Sample) {
				fmt.Printf("%-32s %s\n", obd2.PIDName(s.PID), s.Value)
			},
		})
		monitor.Start(ctx)
		defer monitor.Close()

		<-ctx.Done()
		return nil
	},
}

func init() {
	liveCmd.Flags().DurationVarP(&liveInterval, "interval", "i", 250*time.Millisecond, "poll interval")
	rootCmd.AddCommand(liveCmd)
}
