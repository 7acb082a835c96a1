package workload

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"
)

const (
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

func percentage(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator) * 100
}

// Format renders the per-backend report block. color enables the ANSI
// PASS/FAIL marker for terminal output.
func (r *Result) Format(color bool) string {
	c := r.Counters

	verdict := "PASS"
	if !r.Passed() {
		verdict = "FAIL"
	}
	if color {
		if r.Passed() {
			verdict = colorGreen + verdict + colorReset
		} else {
			verdict = colorRed + verdict + colorReset
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Cuckoo %s Set Benchmark ===\n", r.Backend)
	fmt.Fprintf(&b, "%-30s%s\n", "Run ID:", r.RunID)
	fmt.Fprintf(&b, "%-30s%d\n", "Initial elements added:", r.InitialSize)
	fmt.Fprintf(&b, "%-30s%d\n", "Operations performed:", r.OpsPerformed)
	fmt.Fprintf(&b, "%-30s%-10d%-10s%-10d%.2f%%\n",
		"Contains hits:", c.ContainsHits, "misses:", c.ContainsMisses,
		percentage(c.ContainsHits, c.ContainsHits+c.ContainsMisses))
	fmt.Fprintf(&b, "%-30s%-10d%-10s%-10d%.2f%%\n",
		"Add successes:", c.SuccessfulAdds, "failures:", c.FailedAdds,
		percentage(c.SuccessfulAdds, c.SuccessfulAdds+c.FailedAdds))
	fmt.Fprintf(&b, "%-30s%-10d%-10s%-10d%.2f%%\n",
		"Remove successes:", c.SuccessfulRemoves, "failures:", c.FailedRemoves,
		percentage(c.SuccessfulRemoves, c.SuccessfulRemoves+c.FailedRemoves))
	fmt.Fprintf(&b, "%-30s%d\n", "Expected final size:", r.ExpectedSize)
	fmt.Fprintf(&b, "%-30s%d\n", "Actual final size:", r.ObservedSize)
	fmt.Fprintf(&b, "%-30s%s\n", "Size correctness:", verdict)

	if len(r.WorkerThroughput) > 1 {
		mean := stat.Mean(r.WorkerThroughput, nil)
		stddev := stat.StdDev(r.WorkerThroughput, nil)
		fmt.Fprintf(&b, "%-30s%.0f ± %.0f ops/s per worker\n", "Throughput:", mean, stddev)
	}
	fmt.Fprintf(&b, "%-30s%d KiB\n", "Slot storage:", r.TableBytes/1024)
	fmt.Fprintf(&b, "%-30s%d ms\n", "Time taken:", r.Elapsed.Milliseconds())

	return b.String()
}
