package metrics

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// ProcessSample is a point-in-time resource reading of this process.
type ProcessSample struct {
	RSS        uint64
	CPUPercent float64
	Threads    int32
}

type ProcessSampler struct {
	proc *process.Process
}

func NewProcessSampler() (*ProcessSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("inspect process: %w", err)
	}
	return &ProcessSampler{proc: proc}, nil
}

func (s *ProcessSampler) Sample() (ProcessSample, error) {
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("memory info: %w", err)
	}
	cpu, err := s.proc.CPUPercent()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("cpu percent: %w", err)
	}
	threads, err := s.proc.NumThreads()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("thread count: %w", err)
	}
	return ProcessSample{RSS: mem.RSS, CPUPercent: cpu, Threads: threads}, nil
}

// Log writes the pipeline stats and, when sampler is non-nil, a process sample
// at debug level.
func Log(logger *logrus.Logger, recorder *Recorder, sampler *ProcessSampler) {
	for _, s := range recorder.Snapshot() {
		logger.WithFields(logrus.Fields{
			"pipeline":   s.Name,
			"ticks":      s.Ticks,
			"errors":     s.Errors,
			"last_ms":    s.Last.Milliseconds(),
			"mean_ms":    s.Mean.Milliseconds(),
			"max_ms":     s.Max.Milliseconds(),
			"last_count": s.LastCount,
		}).Debug("Pipeline timing")
	}

	if sampler == nil {
		return
	}
	sample, err := sampler.Sample()
	if err != nil {
		logger.WithError(err).Debug("Process sample failed")
		return
	}
	logger.WithFields(logrus.Fields{
		"rss_mb":  sample.RSS / (1024 * 1024),
		"cpu_pct": fmt.Sprintf("%.1f", sample.CPUPercent),
		"threads": sample.Threads,
	}).Debug("Process resources")
}
