package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"coopsched/internal/host"
	"coopsched/internal/job"
	"coopsched/internal/sched"
)

type demoOptions struct {
	jobs       int
	units      int
	unitCost   time.Duration
	delay      time.Duration
	cancel     int
	fail       int
	noProgress bool
}

func (o demoOptions) validate() error {
	switch {
	case o.jobs < 1:
		return errors.New("--jobs must be at least 1")
	case o.units < 1:
		return errors.New("--units must be at least 1")
	case o.cancel < 0 || o.fail < 0:
		return errors.New("--cancel and --fail must not be negative")
	case o.cancel+o.fail > o.jobs:
		return fmt.Errorf("--cancel plus --fail exceeds --jobs (%d)", o.jobs)
	}
	return nil
}

type demoSummary struct {
	runID     string
	completed int
	cancelled int
	failed    int
	units     int64
	turns     int
	yields    int
	elapsed   time.Duration
}

func newDemoCmd(e *env) *cobra.Command {
	var o demoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run chunked jobs of every priority on a run loop",
		Long: `Schedules a batch of jobs across all priorities on a goroutine run loop.
Jobs are split into units and yield between them when the frame budget is
spent. Some jobs start after a delay, some are cancelled before they start
and some fail halfway.

An event_log path in the config may contain {run}, which is replaced by
the run id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			progressOut := cmd.ErrOrStderr()
			if o.noProgress {
				progressOut = io.Discard
			}
			sum, err := runDemo(ctx, e, o, progressOut)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}

	cmd.Flags().IntVar(&o.jobs, "jobs", 8, "Number of jobs")
	cmd.Flags().IntVar(&o.units, "units", 40, "Units of work per job")
	cmd.Flags().DurationVar(&o.unitCost, "unit-cost", time.Millisecond, "CPU time spent per unit")
	cmd.Flags().DurationVar(&o.delay, "delay", 50*time.Millisecond, "Start delay for delayed jobs")
	cmd.Flags().IntVar(&o.cancel, "cancel", 1, "Number of delayed jobs cancelled before they start")
	cmd.Flags().IntVar(&o.fail, "fail", 0, "Number of jobs that fail halfway")
	cmd.Flags().BoolVar(&o.noProgress, "no-progress", false, "Hide progress bars")

	return cmd
}

// eventCounts tallies events by kind. It is only touched on the loop.
type eventCounts map[sched.EventKind]int

func (c eventCounts) Record(ev sched.Event) { c[ev.Kind]++ }

// tracked calls onDone once cb and its continuations have finished.
func tracked(cb sched.Callback, onDone func(error)) sched.Callback {
	return func(didTimeout bool) (sched.Result, error) {
		res, err := cb(didTimeout)
		if next, ok := res.Continuation(); ok && err == nil {
			return sched.Continue(tracked(next, onDone)), nil
		}
		onDone(err)
		return res, err
	}
}

// spin burns d of CPU time on the calling goroutine.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

func runDemo(ctx context.Context, e *env, o demoOptions, progressOut io.Writer) (demoSummary, error) {
	sum := demoSummary{runID: uuid.NewString()}
	logger := e.logger.With("run", sum.runID)

	cfg := e.cfg
	cfg.EventLog = strings.ReplaceAll(cfg.EventLog, "{run}", sum.runID)

	loop := host.NewLoop(logger)
	counts := eventCounts{}
	s, closeLog, err := e.newScheduler(cfg, loop, []sched.EventSink{counts}, sched.WithLogger(logger))
	if err != nil {
		return sum, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := mpb.New(mpb.WithOutput(progressOut), mpb.WithWidth(48), mpb.WithRefreshRate(60*time.Millisecond))

	remaining := o.jobs
	bars := make([]*mpb.Bar, 0, o.jobs)
	finished := make([]bool, o.jobs)
	finish := func(i int, outcome *int) {
		if finished[i] {
			return
		}
		finished[i] = true
		*outcome++
		if remaining--; remaining == 0 {
			cancel()
		}
	}

	priorities := sched.Priorities()
	logger.Info("demo started", "jobs", o.jobs, "units", o.units, "frame_interval", s.FrameInterval())
	start := time.Now()

	for i := range o.jobs {
		prio := priorities[i%len(priorities)]
		name := fmt.Sprintf("job %d %s", i+1, prio)
		bar := newDemoBar(progress, name, int64(o.units))
		bars = append(bars, bar)

		done := func(err error) {
			if err != nil {
				bar.Abort(false)
				finish(i, &sum.failed)
				return
			}
			finish(i, &sum.completed)
		}

		switch {
		case i < o.cancel:
			t := s.ScheduleCallback(prio, tracked(job.Sleep(o.unitCost, 0, s.ShouldYield), done), sched.WithDelay(o.delay))
			time.AfterFunc(o.delay/2, func() {
				loop.Submit(func() {
					if t.Cancelled() {
						return
					}
					s.CancelCallback(t)
					bar.Abort(false)
					finish(i, &sum.cancelled)
				})
			})

		case i < o.cancel+o.fail:
			failAt := o.units / 2
			s.ScheduleCallback(prio, tracked(job.Chunked(o.units, s.ShouldYield, func(u int) error {
				if u == failAt {
					return fmt.Errorf("unit %d of %s: simulated failure", u, name)
				}
				spin(o.unitCost)
				bar.Increment()
				sum.units++
				return nil
			}), done))

		case i%3 == 2:
			// Delayed jobs sleep instead of spinning and fill their bar at the end.
			s.ScheduleCallback(prio, tracked(job.Sleep(time.Duration(o.units)*o.unitCost, o.unitCost, s.ShouldYield), func(err error) {
				if err == nil {
					bar.SetCurrent(int64(o.units))
					sum.units += int64(o.units)
				}
				done(err)
			}), sched.WithDelay(o.delay))

		default:
			s.ScheduleCallback(prio, tracked(job.Chunked(o.units, s.ShouldYield, func(int) error {
				spin(o.unitCost)
				bar.Increment()
				sum.units++
				return nil
			}), done))
		}
	}

	runErr := loop.Run(ctx)
	sum.elapsed = time.Since(start)
	sum.turns = counts[sched.EventSchedulerResume]
	sum.yields = counts[sched.EventTaskYield]

	for i, bar := range bars {
		if !finished[i] {
			bar.Abort(false)
		}
	}
	progress.Wait()

	closeErr := closeLog()
	if remaining > 0 {
		return sum, fmt.Errorf("demo interrupted with %d job(s) left: %w", remaining, runErr)
	}
	if closeErr != nil {
		return sum, fmt.Errorf("close event log: %w", closeErr)
	}
	logger.Info("demo finished", "elapsed", sum.elapsed, "turns", sum.turns)
	return sum, nil
}

func newDemoBar(p *mpb.Progress, name string, total int64) *mpb.Bar {
	return p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnAbort(
				decor.OnComplete(decor.CountersNoUnit("%d / %d", decor.WC{W: 9}), "done"),
				"stopped",
			),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
		),
	)
}

func printSummary(w io.Writer, sum demoSummary) {
	rate := 0.0
	if secs := sum.elapsed.Seconds(); secs > 0 {
		rate = float64(sum.units) / secs
	}
	fmt.Fprintf(w, "run %s finished in %s\n", sum.runID, sum.elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  jobs:  %d completed, %d cancelled, %d failed\n", sum.completed, sum.cancelled, sum.failed)
	fmt.Fprintf(w, "  units: %s processed (%s)\n", humanize.Comma(sum.units), humanize.SIWithDigits(rate, 1, "units/s"))
	fmt.Fprintf(w, "  turns: %s, %s yields\n", humanize.Comma(int64(sum.turns)), humanize.Comma(int64(sum.yields)))
}
