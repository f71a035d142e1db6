package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/nanosignals/nano"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

func main() {
	log.Print("Starting graph benchmark, please wait...")
	defer log.Print("Finished graph benchmark")

	perfTestCfgs := []benchmarkTestConfig{
		{
			name:           "simple component",
			width:          10,
			staticFraction: 1,
			nSources:       2,
			totalLayers:    5,
			readFraction:   0.2,
			iterations:     60000,
		},
		{
			name:           "dynamic component",
			width:          10,
			totalLayers:    10,
			staticFraction: 0.75,
			nSources:       6,
			readFraction:   0.2,
			iterations:     15000,
		},
		{
			name:           "large web app",
			width:          1000,
			totalLayers:    12,
			staticFraction: 0.95,
			nSources:       4,
			readFraction:   1,
			iterations:     700,
		},
		{
			name:           "wide dense",
			width:          1000,
			totalLayers:    5,
			staticFraction: 1,
			nSources:       25,
			readFraction:   1,
			iterations:     300,
		},
		{
			name:           "deep",
			width:          5,
			totalLayers:    500,
			staticFraction: 1,
			nSources:       3,
			readFraction:   1,
			iterations:     500,
		},
		{
			name:           "very dynamic",
			width:          100,
			totalLayers:    15,
			staticFraction: 0.5,
			nSources:       6,
			readFraction:   1,
			iterations:     2000,
		},
	}

	type results struct {
		checksum uint64
		count    int64
		duration time.Duration
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"size", "nSources", "read%", "static%",
		"nTimes", "test", "time",
		"updateRate", "checksum", "title",
	})

	testRepeats := 5
	for _, cfg := range perfTestCfgs {
		log.Printf("Running '%s' config", cfg.name)
		counter := new(int64)
		graph, err := benchmarkMakeGraph(&benchmarkMakeGraphConfig{
			counter:        counter,
			width:          cfg.width,
			totalLayers:    cfg.totalLayers,
			nSources:       cfg.nSources,
			staticFraction: cfg.staticFraction,
		})
		if err != nil {
			log.Fatalf("building '%s': %v", cfg.name, err)
		}

		runOnce := func() uint64 {
			checksum, err := benchmarkRunGraph(&benchmarkRunGraphConfig{
				graph:        graph,
				iteration:    cfg.iterations,
				readFraction: cfg.readFraction,
			})
			if err != nil {
				log.Fatalf("running '%s': %v", cfg.name, err)
			}
			return checksum
		}
		// run once to warm up
		want := runOnce()

		bestResult := &results{
			duration: time.Hour,
		}

		for i := 0; i < testRepeats; i++ {
			log.Printf("Running '%s' config, iteration %d/%d %d%%", cfg.name, i+1, testRepeats, (i+1)*100/testRepeats)
			*counter = 0
			start := time.Now()
			checksum := runOnce()
			duration := time.Since(start)
			if checksum != want {
				log.Fatalf("'%s' leaves diverged between runs: %x != %x", cfg.name, checksum, want)
			}

			if duration < bestResult.duration {
				bestResult.duration = duration
				bestResult.checksum = checksum
				bestResult.count = *counter
			}
		}

		makeTitle := func() string {
			sb := strings.Builder{}
			sb.WriteString(fmt.Sprintf("%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources))
			if cfg.staticFraction < 1 {
				sb.WriteString(" dynamic")
			}
			if cfg.readFraction < 1 {
				sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*cfg.readFraction))
			}
			return sb.String()
		}

		updateRate := float64(bestResult.count) / (float64(bestResult.duration) / float64(time.Millisecond))

		table.Append([]string{
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers), // size
			fmt.Sprint(cfg.nSources),                         // nSources
			fmt.Sprint(cfg.readFraction),                     // read%
			fmt.Sprint(cfg.staticFraction),                   // static%
			humanize.Comma(cfg.iterations),                   // nTimes
			cfg.name,                                         // test
			fmt.Sprint(bestResult.duration),                  // time
			humanize.Comma(int64(updateRate)),                // updateRate
			fmt.Sprintf("%016x", bestResult.checksum),        // checksum
			makeTitle(),                                      // title
		})
	}
	table.Render()
}

type benchmarkTestConfig struct {
	name           string  // friendly name for the test, should be unique
	width          int64   // width of dependency graph to construct
	totalLayers    int64   // depth of dependency graph to construct
	staticFraction float64 // fraction of nodes that are static
	nSources       int64   // construct a graph with number of sources in each node
	readFraction   float64 // fraction of [0, 1] elements in the last layer from which to read values in each test iteration
	iterations     int64   // number of test iterations
}

type benchmarkGraph struct {
	rt      *nano.Runtime
	sources []*nano.WriteableSignal[int]
	layers  [][]*nano.ReadonlySignal[int]
}

type benchmarkMakeGraphConfig struct {
	counter                      *int64
	width, totalLayers, nSources int64
	staticFraction               float64
}

func benchmarkMakeGraph(cfg *benchmarkMakeGraphConfig) (*benchmarkGraph, error) {
	rt := nano.CreateReactiveSystem()
	sources := make([]*nano.WriteableSignal[int], cfg.width)
	for i := range sources {
		sources[i] = nano.Signal(rt, i)
	}

	prevRow := make([]nano.Readable[int], len(sources))
	for i, s := range sources {
		prevRow[i] = s
	}

	random := rand.New(rand.NewSource(0))
	layers := make([][]*nano.ReadonlySignal[int], cfg.totalLayers-1)
	for l := range layers {
		row, err := makeBenchmarkRow(&benchmarkRowConfig{
			rt:             rt,
			sources:        prevRow,
			counter:        cfg.counter,
			staticFraction: cfg.staticFraction,
			nSources:       cfg.nSources,
			rand:           random,
		})
		if err != nil {
			return nil, err
		}
		layers[l] = row
		for i, c := range row {
			prevRow[i] = c
		}
	}

	return &benchmarkGraph{rt: rt, sources: sources, layers: layers}, nil
}

type benchmarkRunGraphConfig struct {
	graph        *benchmarkGraph
	iteration    int64
	readFraction float64
}

// Execute the graph by writing one of the sources and reading some or all of the leaves.
// return a checksum of the leaf values read at the end
func benchmarkRunGraph(cfg *benchmarkRunGraphConfig) (uint64, error) {
	random := rand.New(rand.NewSource(0))
	leaves := cfg.graph.layers[len(cfg.graph.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - cfg.readFraction)))
	readLeaves := benchmarkRemoveElems(leaves, skipCount, random)

	for i := 0; i < int(cfg.iteration); i++ {
		sourceDex := i % len(cfg.graph.sources)
		if err := cfg.graph.sources[sourceDex].SetValue(i + sourceDex); err != nil {
			return 0, err
		}

		// reading nth leaves
		for _, leaf := range readLeaves {
			leaf.Value()
		}
	}

	digest := xxhash.New()
	buf := make([]byte, 8)
	for _, leaf := range readLeaves {
		binary.LittleEndian.PutUint64(buf, uint64(leaf.Value()))
		digest.Write(buf)
	}
	return digest.Sum64(), nil
}

func benchmarkRemoveElems[T comparable](src []T, rmCount int, rand *rand.Rand) []T {
	copyWithRemovals := make([]T, len(src))
	copy(copyWithRemovals, src)
	for i := 0; i < rmCount; i++ {
		rmDex := rand.Intn(len(copyWithRemovals))
		copyWithRemovals[rmDex] = copyWithRemovals[len(copyWithRemovals)-1]
		copyWithRemovals = copyWithRemovals[:len(copyWithRemovals)-1]
	}
	return copyWithRemovals
}

type benchmarkRowConfig struct {
	rt             *nano.Runtime
	sources        []nano.Readable[int]
	counter        *int64
	staticFraction float64
	nSources       int64
	rand           *rand.Rand
}

func makeBenchmarkRow(cfg *benchmarkRowConfig) ([]*nano.ReadonlySignal[int], error) {
	row := make([]*nano.ReadonlySignal[int], len(cfg.sources))

	for myDex := range cfg.sources {
		mySources := make([]nano.Readable[int], 0, cfg.nSources)
		for sourceDex := 0; sourceDex < int(cfg.nSources); sourceDex++ {
			mySources = append(mySources, cfg.sources[(myDex+sourceDex)%len(cfg.sources)])
		}

		var getter func(oldValue int) int
		if cfg.rand.Float64() < cfg.staticFraction {
			// static node, always reference sources
			getter = func(oldValue int) int {
				*cfg.counter++
				sum := 0
				for _, source := range mySources {
					sum += source.Value()
				}
				return sum
			}
		} else {
			first := mySources[0]
			tail := mySources[1:]
			getter = func(oldValue int) int {
				*cfg.counter++
				sum := first.Value()
				shouldDrop := sum&0x1 > 0
				dropDex := sum % len(tail)

				for i := 0; i < len(tail); i++ {
					if shouldDrop && i == dropDex {
						continue
					}
					sum += tail[i].Value()
				}
				return sum
			}
		}

		c, err := nano.Computed(cfg.rt, getter)
		if err != nil {
			return nil, err
		}
		row[myDex] = c
	}

	return row, nil
}
