package bench

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/fzft/go-cuckoo-set/cuckoo"
	"github.com/fzft/go-cuckoo-set/workload"
)

// Command runs the mixed workload against each selected backend and
// reports the size-law verdict. Exit code is nonzero unless every backend
// passes.
var Command = &cli.Command{
	Name:  "bench",
	Usage: "run the mixed contains/add/remove workload against the set backends",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "threads",
			Usage: "worker threads for the concurrent backends",
			Value: workload.DefaultThreads,
		},
		&cli.IntFlag{
			Name:  "initial-keys",
			Usage: "unique keys to pre-populate",
			Value: workload.DefaultInitialKeys,
		},
		&cli.IntFlag{
			Name:  "total-ops",
			Usage: "operations distributed across workers",
			Value: workload.DefaultTotalOps,
		},
		&cli.IntFlag{
			Name:  "capacity",
			Usage: "initial per-table capacity (0 = twice the initial keys)",
		},
		&cli.IntFlag{
			Name:  "value-min",
			Usage: "lower bound of the operation key range",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "value-max",
			Usage: "upper bound of the operation key range",
			Value: 100000,
		},
		&cli.IntFlag{
			Name:  "populate-min",
			Usage: "lower bound of the initial key range",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "populate-max",
			Usage: "upper bound of the initial key range",
			Value: 100000,
		},
		&cli.StringFlag{
			Name:  "mix",
			Usage: "contains,add,remove weights",
			Value: "0.8,0.1,0.1",
		},
		&cli.StringFlag{
			Name:  "backends",
			Usage: "comma-separated subset of sequential,concurrent,transactional",
			Value: "sequential,concurrent,transactional",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "workload RNG seed (0 = from the clock)",
		},
	},
	Action: run,
}

func run(c *cli.Context) error {
	mix, err := workload.ParseMix(c.String("mix"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	cfg := workload.Config{
		Threads:       c.Int("threads"),
		InitialKeys:   c.Int("initial-keys"),
		TotalOps:      c.Int("total-ops"),
		ValueRange:    workload.Range{Min: c.Int("value-min"), Max: c.Int("value-max")},
		PopulateRange: workload.Range{Min: c.Int("populate-min"), Max: c.Int("populate-max")},
		Mix:           mix,
		Seed:          c.Int64("seed"),
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	capacity := c.Int("capacity")
	if capacity <= 0 {
		capacity = 2 * cfg.InitialKeys
	}

	color := isatty.IsTerminal(os.Stdout.Fd())
	failed := false
	for _, name := range strings.Split(c.String("backends"), ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		result, err := runBackend(name, capacity, cfg)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		fmt.Println(result.Format(color))
		if !result.Passed() {
			failed = true
		}
	}

	if failed {
		return cli.Exit("size invariant violated", 1)
	}
	return nil
}

func runBackend(name string, capacity int, cfg workload.Config) (*workload.Result, error) {
	switch name {
	case "sequential":
		// The reference backend is not safe under concurrent callers.
		cfg.Threads = 1
		return workload.Run("Sequential", cuckoo.NewSequential[int](capacity), cfg)
	case "concurrent":
		return workload.Run("Concurrent", cuckoo.NewConcurrent[int](capacity), cfg)
	case "transactional":
		return workload.Run("Transactional", cuckoo.NewTransactional[int](capacity), cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
