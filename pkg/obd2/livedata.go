package obd2

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/spacetec/godiag"
)

// Sample is one timestamped reading from the poll loop.
type Sample struct {
	PID       byte
	Value     Value
	Timestamp time.Time
}

type MonitorConfig struct {
	PIDs     []byte
	Interval time.Duration
	CacheTTL time.Duration
	OnSample func(Sample)
	OnError  func(error)
}

// Monitor polls a set of PIDs round-robin and keeps the latest value
// of each in a TTL cache, so a stale reading disappears instead of
// being served forever after the ECU stops answering.
type Monitor struct {
	client *Client
	cfg    MonitorConfig
	cache  *ttlcache.Cache[byte, Sample]

	closeOnce sync.Once
	started   bool
	quit      chan struct{}
	done      chan struct{}
}

func NewMonitor(client *Client, cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Second
	}
	if len(cfg.PIDs) == 0 {
		cfg.PIDs = []byte{PIDEngineRPM, PIDVehicleSpeed, PIDCoolantTemp}
	}
	return &Monitor{
		client: client,
		cfg:    cfg,
		cache:  ttlcache.New[byte, Sample](ttlcache.WithTTL[byte, Sample](cfg.CacheTTL)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the poll loop until the context is canceled or Close is
// called.
func (m *Monitor) Start(ctx context.Context) {
	m.started = true
	go m.cache.Start()
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	idx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.quit:
			return
		case <-ticker.C:
			pid := m.cfg.PIDs[idx]
			idx = (idx + 1) % len(m.cfg.PIDs)
			value, err := m.client.ReadPID(ctx, pid)
			if err != nil {
				if m.cfg.OnError != nil {
					m.cfg.OnError(err)
				}
				if !godiag.IsRecoverable(err) {
					return
				}
				continue
			}
			sample := Sample{PID: pid, Value: value, Timestamp: time.Now()}
			m.cache.Set(pid, sample, ttlcache.DefaultTTL)
			if m.cfg.OnSample != nil {
				m.cfg.OnSample(sample)
			}
		}
	}
}

// Latest returns the most recent unexpired sample for a PID.
func (m *Monitor) Latest(pid byte) (Sample, bool) {
	if item := m.cache.Get(pid); item != nil {
		return item.Value(), true
	}
	return Sample{}, false
}

// Values snapshots every unexpired sample.
func (m *Monitor) Values() map[byte]Sample {
	out := make(map[byte]Sample)
	for pid, item := range m.cache.Items() {
		out[pid] = item.Value()
	}
	return out
}

func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		close(m.quit)
		if m.started {
			<-m.done
		}
		m.cache.Stop()
		m.cache.DeleteAll()
	})
}
