package cli

import (
	"fmt"
	"os"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/spf13/cobra"

	"coopsched/internal/host"
	"coopsched/internal/sched"
	"coopsched/internal/script"
)

func newScriptCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file.js>",
		Short: "Run a JavaScript file with the scheduler object installed",
		Long: `Runs the file on an event loop with a global "scheduler" object.
The command returns once the script, its timers and all scheduled tasks
have finished.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(e, args[0])
		},
	}
}

func runScript(e *env, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	h := host.NewGoja(eventloop.NewEventLoop())
	logger := e.logger.With("script", path)

	failed := 0
	s, closeLog, err := e.newScheduler(e.cfg, h, nil, sched.WithLogger(logger), sched.WithErrorHandler(func(err error) {
		failed++
		logger.Error("task failed", "error", err)
	}))
	if err != nil {
		return err
	}

	var runErr error
	h.Loop().Run(func(vm *goja.Runtime) {
		if err := script.Install(vm, s); err != nil {
			runErr = err
			return
		}
		_, runErr = vm.RunScript(path, string(src))
	})
	closeErr := closeLog()
	if runErr != nil {
		return fmt.Errorf("run script: %w", runErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d task(s) failed", failed)
	}
	return closeErr
}
