/*
Package process abstracts external process execution.

All exec.Command calls in the orchestration code go through the Manager
interface so command invocations can be mocked, captured, and verified
in unit tests without running real processes.

	pm := process.NewDefaultManager()
	output, err := pm.Run(ctx, "docker", "compose", "version")
	if err != nil {
	    return fmt.Errorf("checking compose version: %w", err)
	}

For testing, use MockManager:

	mock := &process.MockManager{
	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
	        return []byte("mock output"), nil
	    },
	}

# Thread Safety

Manager implementations are safe for concurrent use from multiple
goroutines.

# Error Handling

Failed commands return a *util.CommandError carrying the exit code and
a bounded stderr capture, so callers can log diagnostics without
re-running the command.
*/
package process
