package godiag

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
)

// Adapter is the transport boundary of the engine. Implementations own
// the physical link (serial bridge, SocketCAN, J2534) and expose frame
// channels; the protocol layers never know which one they run over.
type Adapter interface {
	Name() string
	Open(context.Context) error
	Close() error
	Send() chan<- *CANFrame
	Recv() <-chan *CANFrame
	Err() <-chan error
	Event() <-chan Event
}

type AdapterInfo struct {
	Name               string
	Description        string
	RequiresSerialPort bool
	New                func(*AdapterConfig) (Adapter, error)
}

func (a *AdapterInfo) String() string {
	return fmt.Sprintf("%s | %s, requires serial port: %v", a.Name, a.Description, a.RequiresSerialPort)
}

type AdapterConfig struct {
	Debug        bool
	Port         string
	PortBaudrate int
	CANRate      float64
	Filters      []CANFilter
	OnMessage    func(string)
}

// Keys are lowercased; lookup is case-insensitive.
var adapterMap = make(map[string]*AdapterInfo)

func NewAdapter(adapterName string, cfg *AdapterConfig) (Adapter, error) {
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) {
			log.Println(msg)
		}
	}
	if adapter, found := adapterMap[strings.ToLower(adapterName)]; found {
		return adapter.New(cfg)
	}
	return nil, Configuration("CONN_ADAPTER_NOT_FOUND", fmt.Sprintf("unknown adapter %q", adapterName), nil)
}

func RegisterAdapter(adapter *AdapterInfo) error {
	key := strings.ToLower(adapter.Name)
	if _, found := adapterMap[key]; !found {
		adapterMap[key] = adapter
		return nil
	}
	return fmt.Errorf("adapter %s already registered", adapter.Name)
}

func ListAdapterNames() []string {
	out := make([]string, 0, len(adapterMap))
	for _, info := range adapterMap {
		out = append(out, info.Name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func ListAdapters() []AdapterInfo {
	out := make([]AdapterInfo, 0, len(adapterMap))
	for _, name := range ListAdapterNames() {
		out = append(out, *adapterMap[strings.ToLower(name)])
	}
	return out
}
