package server

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/singlepixel/internal/spi"
)

// simulatorCache keeps one Simulator per resolution. A basis depends on px
// alone, so every job at the same resolution shares it.
type simulatorCache struct {
	mu   sync.Mutex
	sims map[int]*spi.Simulator
}

func newSimulatorCache() *simulatorCache {
	return &simulatorCache{sims: make(map[int]*spi.Simulator)}
}

// get returns the simulator for px, building it on first use. Building holds
// the lock so concurrent jobs never build the same basis twice.
func (c *simulatorCache) get(px int) (*spi.Simulator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sim, ok := c.sims[px]; ok {
		return sim, nil
	}

	start := time.Now()
	sim, err := spi.NewSimulator(px)
	if err != nil {
		return nil, err
	}
	c.sims[px] = sim
	slog.Info("Built sensing basis", "px", px, "elapsed", time.Since(start))
	return sim, nil
}

func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
}
