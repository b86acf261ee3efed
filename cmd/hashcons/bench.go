package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/hashcons/codec"
	"github.com/IvanBrykalov/hashcons/consolidate"
	"github.com/IvanBrykalov/hashcons/intern"
	pmet "github.com/IvanBrykalov/hashcons/metrics/prom"
	"github.com/IvanBrykalov/hashcons/score"
	"github.com/IvanBrykalov/hashcons/value"
	"github.com/IvanBrykalov/hashcons/workspace"
)

type benchFlags struct {
	docs     int
	copies   int
	staves   int
	measures int
	notes    int
	workers  int
	seed     uint64
	addr     string
	out      string
}

func newBenchCmd(a *app) *cobra.Command {
	var f benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Build random documents through the registry, bulk-copy some, and consolidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), a, f, cmd.OutOrStdout())
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.docs, "docs", 64, "documents to build")
	fl.IntVar(&f.copies, "copies", 16, "bulk copies that bypass the registry")
	fl.IntVar(&f.staves, "staves", 4, "staves per document")
	fl.IntVar(&f.measures, "measures", 32, "measures per staff")
	fl.IntVar(&f.notes, "notes", 8, "elements per measure")
	fl.IntVar(&f.workers, "workers", runtime.GOMAXPROCS(0), "builder goroutines")
	fl.Uint64Var(&f.seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	fl.StringVar(&f.addr, "http", "", "serve Prometheus metrics at addr and wait for interrupt; empty = disabled")
	fl.StringVar(&f.out, "out", "", "write the first document's encoding to this file")
	return cmd
}

func runBench(ctx context.Context, a *app, f benchFlags, out io.Writer) error {
	if f.docs <= 0 || f.workers <= 0 {
		return errors.New("bench: --docs and --workers must be positive")
	}

	promReg := prometheus.NewRegistry()
	metrics := pmet.New(promReg, "hashcons", nil)

	opt, err := a.cfg.RegistryOptions(a.logger)
	if err != nil {
		return err
	}
	opt.Metrics = metrics.Kinds()
	reg := intern.NewRegistry(opt)
	defer reg.Close()
	ws := workspace.New(workspace.Options{Registry: reg, Logger: a.logger})

	var srv *http.Server
	if f.addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: f.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics: serving", "addr", f.addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics: server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	// Build through the registry, one RNG per worker.
	start := time.Now()
	docs := make([]*score.Document, f.docs)
	var g errgroup.Group
	g.SetLimit(f.workers)
	for i := range docs {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(f.seed, uint64(i)))
			docs[i] = randomDocument(reg, rng, fmt.Sprintf("doc-%d", i), f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	built := time.Since(start)
	for _, d := range docs {
		ws.Add(d)
	}
	for i := 0; i < f.copies; i++ {
		c := docs[i%len(docs)].DeepCopy()
		c.ID = score.New("").ID
		ws.Add(c)
	}

	daemon := consolidate.New(reg, ws, consolidate.Options{Metrics: metrics.Daemon(), Logger: a.logger})
	rep, err := daemon.RunCycle(ctx)
	if err != nil {
		return err
	}

	data, st, err := codec.SerializeStats(docs[0])
	if err != nil {
		return err
	}
	if f.out != "" {
		if err := os.WriteFile(f.out, data, 0o644); err != nil {
			return err
		}
	}

	elements := f.docs * f.staves * f.measures * f.notes
	fmt.Fprintf(out, "docs=%d copies=%d elements=%d workers=%d seed=%d\n", f.docs, f.copies, elements, f.workers, f.seed)
	fmt.Fprintf(out, "build=%v (%.0f elements/s)\n", built, float64(elements)/built.Seconds())
	fmt.Fprintf(out, "consolidate: documents=%d scanned=%d replaced=%d conflicts=%d failed=%d\n",
		rep.Documents, rep.Scanned, rep.Replaced, rep.Conflicts, rep.Failed)
	fmt.Fprintf(out, "codec: bytes=%d entries=%d tokens=%d inline=%d\n", st.Bytes, st.Entries, st.Tokens, st.Inline)
	printRegistryStats(out, reg)

	if srv != nil {
		fmt.Fprintf(out, "serving metrics at %s; interrupt to exit\n", f.addr)
		<-ctx.Done()
	}
	return nil
}

func printRegistryStats(out io.Writer, reg *intern.Registry) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tENTRIES\tHITS\tMISSES\tEVICTIONS")
	stats := reg.Stats()
	for _, k := range value.Kinds {
		s := stats[k]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", k, s.Entries, s.Hits, s.Misses, s.Evictions)
	}
	tw.Flush()
}

// randomDocument draws from a small vocabulary so that values repeat, with
// an occasional tie to keep some values ineligible.
func randomDocument(reg *intern.Registry, rng *rand.Rand, title string, f benchFlags) *score.Document {
	d := score.New(title)
	durs := []value.Duration{{Value: value.Quarter}, {Value: value.Eighth}, {Value: value.Half}, {Value: value.Quarter, Dots: 1}}
	note := func() *value.Note {
		p := reg.Pitch(value.Step(rng.IntN(7)), int8(rng.IntN(3)-1), int8(3+rng.IntN(3)))
		dur := durs[rng.IntN(len(durs))]
		if rng.IntN(4) == 0 {
			return reg.Note(p, dur, value.NoRelation, reg.Articulation(value.ArticulationMark(rng.IntN(4)), value.NoRelation))
		}
		return reg.Note(p, dur, value.NoRelation)
	}
	var rel value.RelID
	for s := 0; s < f.staves; s++ {
		si := d.AddStaff(fmt.Sprintf("staff %d", s+1), f.measures)
		for m := 0; m < f.measures; m++ {
			for e := 0; e < f.notes; e++ {
				var v value.Value
				switch r := rng.IntN(20); {
				case r == 0:
					rel++
					p := reg.Pitch(value.StepG, 0, 4)
					v = reg.Note(p, durs[0], rel, reg.Marker(value.TieStart, rel))
				case r < 3:
					v = reg.Rest(durs[rng.IntN(len(durs))], value.NoRelation)
				case r < 6:
					v = reg.Chord([]*value.Note{note(), note()}, durs[0], value.NoRelation)
				default:
					v = note()
				}
				_ = d.Append(si, m, v)
			}
		}
	}
	return d
}
