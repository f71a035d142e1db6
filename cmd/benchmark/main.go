package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/nanosignals/nano"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
	"github.com/valyala/quicktemplate"
)

const (
	itersKey   = "iters"
	maxSizeKey = "max"
	batchKey   = "batch"
	jsonKey    = "json"
	profileKey = "pprof"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure write-to-effect propagation through nano computed chains",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Writes per graph shape",
				Value: 100,
			},
			&cli.UintFlag{
				Name:  maxSizeKey,
				Usage: "Largest width and height to try (powers of ten from 1)",
				Value: 1_000,
			},
			&cli.BoolFlag{
				Name:  batchKey,
				Usage: "Wrap each write in a batch",
			},
			&cli.StringFlag{
				Name:  jsonKey,
				Usage: "Also write results as JSON to this file",
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this file",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type result struct {
	width, height int
	calc          *tachymeter.Metrics
}

func run(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	iters := int(cmd.Uint(itersKey))
	sizes := []int{}
	for n := 1; n <= int(cmd.Uint(maxSizeKey)); n *= 10 {
		sizes = append(sizes, n)
	}

	log.Printf("warming up")
	if _, err := benchmarkPropagate(1, 1, iters, false); err != nil {
		return err
	}

	results := []result{}
	for _, w := range sizes {
		for _, h := range sizes {
			calc, err := benchmarkPropagate(w, h, iters, cmd.Bool(batchKey))
			if err != nil {
				return fmt.Errorf("propagate %d * %d: %w", w, h, err)
			}
			results = append(results, result{width: w, height: h, calc: calc})
		}
	}

	render(os.Stdout, results, iters)

	if path := cmd.String(jsonKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		writeJSON(f, results)
		log.Printf("wrote %s", path)
	}
	return nil
}

// benchmarkPropagate builds w chains of h computeds hanging off one source,
// each ending in an effect, and times iters writes to the source.
func benchmarkPropagate(w, h, iters int, batched bool) (*tachymeter.Metrics, error) {
	rt := nano.CreateReactiveSystem()
	src := nano.Signal(rt, 1)

	for i := 0; i < w; i++ {
		var last nano.Readable[int] = src
		for j := 0; j < h; j++ {
			prev := last
			c, err := nano.Computed(rt, func(oldValue int) int {
				return prev.Value() + 1
			})
			if err != nil {
				return nil, err
			}
			last = c
		}

		if _, err := nano.Effect(rt, func() error {
			last.Value()
			return nil
		}); err != nil {
			return nil, err
		}
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		var err error
		if batched {
			err = rt.Batch(func() error {
				return src.SetValue(src.Peek() + 1)
			})
		} else {
			err = src.SetValue(src.Peek() + 1)
		}
		if err != nil {
			return nil, err
		}
		tach.AddTime(time.Since(start))
	}
	return tach.Calc(), nil
}

func render(w io.Writer, results []result, iters int) {
	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("nano signals, %s writes per shape", humanize.Comma(int64(iters))))
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"benchmark", "nodes", "avg", "min", "p75", "p99", "max"})

	for _, r := range results {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("propagate: %d * %d", r.width, r.height),
			humanize.Comma(int64(r.width * r.height)),
			r.calc.Time.Avg,
			r.calc.Time.Min,
			r.calc.Time.P75,
			r.calc.Time.P99,
			r.calc.Time.Max,
		})
	}
	tbl.Render()
}

func writeJSON(w io.Writer, results []result) {
	qw := quicktemplate.AcquireWriter(w)
	defer quicktemplate.ReleaseWriter(qw)

	out := qw.N()
	out.S("[")
	for i, r := range results {
		if i > 0 {
			out.S(",")
		}
		out.S(`{"name":`)
		out.Q(fmt.Sprintf("propagate: %d * %d", r.width, r.height))
		out.S(`,"width":`)
		out.D(r.width)
		out.S(`,"height":`)
		out.D(r.height)
		out.S(`,"avg_ns":`)
		out.DL(r.calc.Time.Avg.Nanoseconds())
		out.S(`,"p99_ns":`)
		out.DL(r.calc.Time.P99.Nanoseconds())
		out.S(`,"max_ns":`)
		out.DL(r.calc.Time.Max.Nanoseconds())
		out.S("}")
	}
	out.S("]\n")
}
