package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	benchcmd "github.com/fzft/go-cuckoo-set/cmd/bench"
	replcmd "github.com/fzft/go-cuckoo-set/cmd/repl"
	"github.com/fzft/go-cuckoo-set/log"
)

var app = &cli.App{
	Name:    "cuckoo-set",
	Usage:   "two-table cuckoo hash set benchmarks.",
	Version: Version(),
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "debug",
			EnvVars: []string{"DEBUG"},
			Usage:   "enable debug logging",
		},
		&cli.BoolFlag{
			Name:    "log-json",
			EnvVars: []string{"LOG_JSON"},
			Usage:   "log as JSON instead of console output",
		},
	},
	Before: func(c *cli.Context) error {
		return log.InitLogger(c.Bool("debug"), c.Bool("log-json"))
	},
	Commands: []*cli.Command{
		benchcmd.Command,
		replcmd.Command,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
