package system

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure Probe implements the interface.
var _ driven.ResourceProbe = (*Probe)(nil)

const (
	// DefaultThreshold is the load percentage at which the host counts
	// as busy. Applied to CPU and memory independently.
	DefaultThreshold = 80.0

	// cpuSampleInterval is how long the CPU sampler measures for. A
	// point-in-time read would report utilisation since boot.
	cpuSampleInterval = 100 * time.Millisecond
)

// Config holds probe settings. Zero values select the defaults.
type Config struct {
	Threshold float64
}

// Probe answers whether the host is too loaded to start another
// connector run.
type Probe struct {
	threshold float64
	cpuUsage  func(ctx context.Context) (float64, error)
	memUsage  func(ctx context.Context) (float64, error)
}

// NewProbe creates a probe sampling live host statistics.
func NewProbe(cfg Config) *Probe {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Probe{
		threshold: cfg.Threshold,
		cpuUsage:  sampleCPU,
		memUsage:  sampleMemory,
	}
}

// Busy reports whether CPU or memory usage is at or above the
// threshold. Connector runs are deferred, not dropped, while the host
// is busy, so a conservative answer only delays work.
func (p *Probe) Busy(ctx context.Context) (bool, error) {
	cpuPct, err := p.cpuUsage(ctx)
	if err != nil {
		return false, fmt.Errorf("sample cpu usage: %w", err)
	}
	if cpuPct >= p.threshold {
		logger.Debug("host busy: cpu at %.1f%% (threshold %.1f%%)", cpuPct, p.threshold)
		return true, nil
	}
	memPct, err := p.memUsage(ctx)
	if err != nil {
		return false, fmt.Errorf("sample memory usage: %w", err)
	}
	if memPct >= p.threshold {
		logger.Debug("host busy: memory at %.1f%% (threshold %.1f%%)", memPct, p.threshold)
		return true, nil
	}
	return false, nil
}

func sampleCPU(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("no cpu sample returned")
	}
	return percentages[0], nil
}

func sampleMemory(ctx context.Context) (float64, error) {
	stat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return stat.UsedPercent, nil
}
