package probe

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const nvidiaSMI = "nvidia-smi"

// GPUStats holds the first GPU's readings; nil fields mean unavailable
type GPUStats struct {
	Name         *string
	UsagePercent *float64
	MemoryUsedMB *int64
}

// GPUProbe queries GPU usage through nvidia-smi
type GPUProbe struct {
	timeout  time.Duration
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewGPUProbe creates a GPU probe; each query is bounded by timeout
func NewGPUProbe(timeout time.Duration) *GPUProbe {
	return &GPUProbe{
		timeout:  timeout,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Collect returns empty stats when nvidia-smi is missing or fails
func (p *GPUProbe) Collect(ctx context.Context) GPUStats {
	bin, err := p.lookPath(nvidiaSMI)
	if err != nil {
		return GPUStats{}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, bin,
		"--query-gpu=name,utilization.gpu,memory.used",
		"--format=csv,noheader,nounits",
	)
	if err != nil {
		return GPUStats{}
	}
	return ParseNvidiaSMI(string(out))
}

// ParseNvidiaSMI reads the first non-blank "name, utilization, memory" CSV row
func ParseNvidiaSMI(output string) GPUStats {
	var first string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			first = line
			break
		}
	}
	if first == "" {
		return GPUStats{}
	}

	parts := strings.Split(first, ",")
	if len(parts) < 3 {
		return GPUStats{}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var stats GPUStats
	if parts[0] != "" {
		name := parts[0]
		stats.Name = &name
	}
	if usage, err := strconv.ParseFloat(parts[1], 64); err == nil {
		stats.UsagePercent = &usage
	}
	if mem, err := strconv.ParseFloat(parts[2], 64); err == nil {
		mb := int64(mem)
		stats.MemoryUsedMB = &mb
	}
	return stats
}
