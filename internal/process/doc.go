// Package process runs helper executables and hands off to installers.
//
// Run executes a tool to completion, streaming its output to a logger and
// capturing it for error reporting. Cancelling the context sends an interrupt
// first and kills the process if it has not exited after a grace period.
//
// Launcher starts a program that must outlive the current process:
//   - a detached spawn in its own session or process group
//   - a shell start, for paths the spawn cannot execute directly
//   - revealing the file in the OS file browser for a manual launch
//
// Each strategy is tried in order and a *LaunchError is returned only when all
// of them fail.
//
// Example usage:
//
//	res, err := process.Run(ctx, logger, "7za", "x", archive, "-o"+out, "-y")
//	if err == nil && res.ExitCode != 0 {
//	    return errors.New(res.Stderr)
//	}
//
//	launcher := process.NewLauncher(logger)
//	if err := launcher.Launch(installer, "/S", "--force-run"); err != nil {
//	    return err
//	}
package process
