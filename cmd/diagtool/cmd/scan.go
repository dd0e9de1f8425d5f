package cmd

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/bar"
	"github.com/spacetec/godiag/pkg/isotp"
	"github.com/spacetec/godiag/pkg/uds"
)

// The standard physical request range; responses come back offset by 8.
const (
	scanFirstID uint32 = 0x7E0
	scanLastID  uint32 = 0x7E7
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe the standard diagnostic address range for ECUs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := initClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		b := bar.New(int(scanLastID-scanFirstID)+1, "scanning")
		var mu sync.Mutex
		var found []uint32

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for id := scanFirstID; id <= scanLastID; id++ {
			id := id
			g.Go(func() error {
				defer b.Add(1)
				tp := isotp.New(c, isotp.Config{
					TxID:    id,
					RxID:    id + 8,
					Timeout: 300 * time.Millisecond,
				})
				session := uds.NewClient(tp, uds.ClientConfig{})
				err := session.TesterPresent(gctx)
				if err == nil {
					mu.Lock()
					found = append(found, id)
					mu.Unlock()
					return nil
				}
				// silence is expected on unoccupied addresses
				if godiag.ClassifyCategory(err) == godiag.CategoryConnectivity {
					return nil
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		b.Finish()
		fmt.Println()

		if len(found) == 0 {
			fmt.Println("no ECUs found")
			return nil
		}
		sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
		for _, id := range found {
			fmt.Printf("ECU at 0x%03X (responds on 0x%03X)\n", id, id+8)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
