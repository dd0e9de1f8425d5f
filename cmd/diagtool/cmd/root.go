package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacetec/godiag"
	"github.com/spacetec/godiag/pkg/ecusim"
	"github.com/spacetec/godiag/pkg/isotp"
	"github.com/spacetec/godiag/pkg/obd2"
	"github.com/spacetec/godiag/pkg/uds"
)

var rootCmd = &cobra.Command{
	Use:   "diagtool",
	Short: "OBD-II / UDS diagnostic tool",
	Long:  `Read trouble codes, live sensor data and ECU identification over CAN`,
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var (
	adapterName string
	comPort     string
	baudRate    int
	canRate     float64
	debug       bool
	requestID   uint32
	responseID  uint32
	simulate    bool
)

func init() {
	log.SetFlags(0)
	rootCmd.PersistentFlags().StringVarP(&adapterName, "adapter", "a", "Virtual", "adapter to use, see 'diagtool adapters'")
	rootCmd.PersistentFlags().StringVarP(&comPort, "port", "p", "", "serial port")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baudrate", "b", 115200, "serial baudrate")
	rootCmd.PersistentFlags().Float64VarP(&canRate, "canrate", "c", 500, "CAN bitrate in kbit/s")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug mode")
	rootCmd.PersistentFlags().Uint32Var(&requestID, "txid", 0x7E0, "request CAN identifier")
	rootCmd.PersistentFlags().Uint32Var(&responseID, "rxid", 0x7E8, "response CAN identifier")
	rootCmd.PersistentFlags().BoolVar(&simulate, "sim", false, "attach a simulated ECU to the Virtual adapter")
}

func initClient(ctx context.Context) (*godiag.Client, error) {
	adapter, err := godiag.NewAdapter(adapterName, &godiag.AdapterConfig{
		Debug:        debug,
		Port:         comPort,
		PortBaudrate: baudRate,
		CANRate:      canRate,
		Filters: []godiag.CANFilter{
			// covers the whole 0x7E8-0x7EF response range
			{ID: responseID, Mask: 0x7F8},
		},
	})
	if err != nil {
		return nil, err
	}
	if simulate {
		virt, ok := adapter.(*godiag.Virtual)
		if !ok {
			return nil, fmt.Errorf("--sim requires the Virtual adapter, got %s", adapter.Name())
		}
		ecu := ecusim.New(ecusim.Config{RequestID: requestID, ResponseID: responseID})
		ecu.AddDTC(ecusim.StoredDTC{High: 0x01, Middle: 0x43, Low: 0x00, Status: uds.StatusConfirmed | uds.StatusTestFailed})
		virt.SetResponder(ecu.Responder())
	}
	return godiag.NewClient(ctx, adapter)
}

func initTransport(ctx context.Context) (*godiag.Client, *isotp.Transport, error) {
	c, err := initClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := isotp.New(c, isotp.Config{
		TxID:    requestID,
		RxID:    responseID,
		Timeout: 2 * time.Second,
	})
	return c, tp, nil
}

func initSession(ctx context.Context) (*godiag.Client, *uds.Client, error) {
	c, tp, err := initTransport(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, uds.NewClient(tp, uds.ClientConfig{
		OnEvent: func(msg string) {
			if debug {
				log.Println(msg)
			}
		},
	}), nil
}

func initOBD(ctx context.Context) (*godiag.Client, *obd2.Client, error) {
	c, tp, err := initTransport(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, obd2.NewClient(tp, 2*time.Second), nil
}
