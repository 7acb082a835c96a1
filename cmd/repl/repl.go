package repl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	"github.com/fzft/go-cuckoo-set/cuckoo"
)

const (
	histFileEnv     = "CUCKOO_HISTFILE"
	histFileDefault = ".cuckoo_history"
)

// Command opens an interactive shell over a single set backend.
var Command = &cli.Command{
	Name:  "repl",
	Usage: "interactive shell over one set backend",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "sequential, concurrent or transactional",
			Value: "concurrent",
		},
		&cli.IntFlag{
			Name:  "capacity",
			Usage: "initial per-table capacity",
			Value: cuckoo.DefaultCapacity,
		},
	},
	Action: run,
}

func newBackend(backend string, capacity int) (cuckoo.Set[int], error) {
	switch strings.ToLower(backend) {
	case "sequential":
		return cuckoo.NewSequential[int](capacity), nil
	case "concurrent":
		return cuckoo.NewConcurrent[int](capacity), nil
	case "transactional":
		return cuckoo.NewTransactional[int](capacity), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func run(c *cli.Context) error {
	set, err := newBackend(c.String("backend"), c.Int("capacity"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	var historyFile string
	if isatty.IsTerminal(os.Stdin.Fd()) {
		historyFile = dotfilePath(histFileEnv, histFileDefault)
		if historyFile != "" {
			if f, err := os.Open(historyFile); err == nil {
				line.ReadHistory(f)
				f.Close()
			}
		}
	}

	prompt := fmt.Sprintf("cuckoo[%s]> ", strings.ToLower(c.String("backend")))
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if quit := eval(set, input); quit {
			break
		}
	}

	if historyFile != "" {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}

// eval runs one shell command, returning true when the session ends.
func eval(set cuckoo.Set[int], input string) bool {
	args := strings.Fields(input)
	cmd := strings.ToLower(args[0])

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Print(helpText)
	case "size":
		fmt.Println(set.Size())
	case "add", "remove", "contains":
		if len(args) != 2 {
			fmt.Printf("usage: %s <key>\n", cmd)
			break
		}
		key, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Printf("bad key %q\n", args[1])
			break
		}
		switch cmd {
		case "add":
			fmt.Println(set.Add(key))
		case "remove":
			fmt.Println(set.Remove(key))
		case "contains":
			fmt.Println(set.Contains(key))
		}
	case "populate":
		if len(args) < 2 {
			fmt.Println("usage: populate <key> [key ...]")
			break
		}
		keys := make([]int, 0, len(args)-1)
		ok := true
		for _, arg := range args[1:] {
			key, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Printf("bad key %q\n", arg)
				ok = false
				break
			}
			keys = append(keys, key)
		}
		if ok {
			fmt.Println(set.Populate(keys))
		}
	default:
		fmt.Printf("unknown command %q, try help\n", cmd)
	}
	return false
}

const helpText = `add <key>            insert a key, prints true if newly added
remove <key>         delete a key, prints true if it was present
contains <key>       membership test
populate <key ...>   bulk insert, prints the number added
size                 count of keys
quit                 leave the shell
`

func dotfilePath(envOverride, dotFilename string) string {
	if path := os.Getenv(envOverride); path != "" {
		if path == "/dev/null" {
			return ""
		}
		return path
	}
	if home := os.Getenv("HOME"); home != "" {
		return fmt.Sprintf("%s/%s", home, dotFilename)
	}
	return ""
}
