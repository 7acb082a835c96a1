package workload

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fzft/go-cuckoo-set/cuckoo"
)

// Result is the outcome of one backend's run. The benchmark passes when
// the size law holds: initial + successful adds - successful removes must
// equal the observed size once every worker has joined.
type Result struct {
	Backend      string
	RunID        uuid.UUID
	InitialSize  int
	OpsPerformed int
	Counters     Snapshot
	ExpectedSize int
	ObservedSize int
	Elapsed      time.Duration
	// WorkerThroughput holds each worker's ops/sec for the spread report.
	WorkerThroughput []float64
	TableBytes       int64
}

func (r *Result) Passed() bool {
	return r.ExpectedSize == r.ObservedSize
}

// Run populates the set and drives the configured workload against it.
// The sequential backend must be run with Threads == 1; the driver does
// not enforce which backend it was handed.
func Run(backend string, set cuckoo.Set[int], cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	result := &Result{
		Backend: backend,
		RunID:   uuid.New(),
	}

	initialKeys := uniqueKeys(rand.New(rand.NewSource(seed)), cfg.PopulateRange, cfg.InitialKeys)
	result.InitialSize = set.Populate(initialKeys)

	zap.L().Debug("benchmark populated",
		zap.String("backend", backend),
		zap.String("run_id", result.RunID.String()),
		zap.Int("initial_size", result.InitialSize))

	stats := NewStats()
	opsPerWorker := cfg.TotalOps / cfg.Threads
	result.OpsPerformed = opsPerWorker * cfg.Threads
	result.WorkerThroughput = make([]float64, cfg.Threads)

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < cfg.Threads; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(worker) + 1))
			workerStart := time.Now()
			runWorker(set, cfg, rng, opsPerWorker, stats)
			if elapsed := time.Since(workerStart).Seconds(); elapsed > 0 {
				result.WorkerThroughput[worker] = float64(opsPerWorker) / elapsed
			}
		}(w)
	}
	wg.Wait()
	result.Elapsed = time.Since(start)

	result.Counters = stats.Snapshot()
	result.ExpectedSize = result.InitialSize +
		int(result.Counters.SuccessfulAdds) - int(result.Counters.SuccessfulRemoves)
	result.ObservedSize = set.Size()
	result.TableBytes = cuckoo.TableMemory()

	zap.L().Info("benchmark finished",
		zap.String("backend", backend),
		zap.String("run_id", result.RunID.String()),
		zap.Int("expected_size", result.ExpectedSize),
		zap.Int("observed_size", result.ObservedSize),
		zap.Bool("passed", result.Passed()),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

func runWorker(set cuckoo.Set[int], cfg Config, rng *rand.Rand, ops int, stats *Stats) {
	addThreshold := cfg.Mix.Contains + cfg.Mix.Add
	for i := 0; i < ops; i++ {
		choice := rng.Float64()
		value := cfg.ValueRange.Min + rng.Intn(cfg.ValueRange.size())

		switch {
		case choice < cfg.Mix.Contains:
			if set.Contains(value) {
				stats.ContainsHits.Inc()
			} else {
				stats.ContainsMisses.Inc()
			}
		case choice < addThreshold:
			if set.Add(value) {
				stats.SuccessfulAdds.Inc()
			} else {
				stats.FailedAdds.Inc()
			}
		default:
			if set.Remove(value) {
				stats.SuccessfulRemoves.Inc()
			} else {
				stats.FailedRemoves.Inc()
			}
		}
	}
}

// uniqueKeys draws count distinct keys from the range.
func uniqueKeys(rng *rand.Rand, r Range, count int) []int {
	keys := make([]int, 0, count)
	seen := make(map[int]struct{}, count)
	for len(keys) < count {
		key := r.Min + rng.Intn(r.size())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
