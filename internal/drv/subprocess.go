package drv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/sys/unix"

	"llir-opt/internal/diag"
)

// ProcessResult is the outcome of running the back-end/linker subprocess
// (§6's external interface, §7's I/O error kind: "subprocess non-zero
// exit").
type ProcessResult struct {
	ExitCode int
	Signaled bool
	Signal   unix.Signal
}

// pollInterval is how often RunBackend polls a non-blocking wait for the
// child to exit, rather than blocking the driver goroutine in a plain
// os.Process.Wait for the whole subprocess lifetime.
const pollInterval = 2 * time.Millisecond

// RunBackend invokes the back-end/linker binary with the given
// arguments, waiting for it through a non-blocking unix.Wait4 poll loop
// rather than exec.Cmd.Wait, so the caller's choice of poll cadence
// (and, in the driver's case, a future cancellation hook) is explicit
// rather than hidden behind a single blocking call.
func RunBackend(path string, args []string, stdout, stderr *os.File) (*ProcessResult, error) {
	cmd := exec.Command(path, args...)
	// Assigning a nil *os.File directly to cmd.Stdout/Stderr would wrap a
	// nil pointer in a non-nil io.Writer, which exec.Cmd dereferences --
	// leave the interface itself nil (exec's usual "discard" behavior)
	// when the caller passed no file.
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	}
	if err := cmd.Start(); err != nil {
		return nil, ioError(diag.ErrFileNotFound, fmt.Sprintf("spawning %s: %v", path, err))
	}
	pid := cmd.Process.Pid

	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if err != nil {
			return nil, ioError(diag.ErrSubprocessExit, fmt.Sprintf("waiting for %s: %v", path, err))
		}
		if wpid == pid {
			break
		}
		time.Sleep(pollInterval)
	}

	res := &ProcessResult{}
	if ws.Signaled() {
		res.Signaled = true
		res.Signal = ws.Signal()
		return res, ioError(diag.ErrSubprocessExit, fmt.Sprintf("%s killed by signal %s", path, ws.Signal()))
	}
	res.ExitCode = ws.ExitStatus()
	if res.ExitCode != 0 {
		return res, ioError(diag.ErrSubprocessExit, fmt.Sprintf("%s exited with status %d", path, res.ExitCode))
	}
	return res, nil
}

func ioError(code, msg string) error {
	return diag.New(diag.IO, code, msg, diag.Position{})
}

// SaveSnapshot writes blob to a new file under dir, named with a ksuid
// suffix so concurrent driver invocations sharing a save directory
// (LLIR_LD_SAVE, §6) never collide the way a bare incrementing counter
// would.
func SaveSnapshot(dir string, blob []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ioError(diag.ErrPermissionDenied, fmt.Sprintf("creating save dir %s: %v", dir, err))
	}
	name := fmt.Sprintf("llir-opt-%s.llbc", ksuid.New().String())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", ioError(diag.ErrPermissionDenied, fmt.Sprintf("writing snapshot %s: %v", path, err))
	}
	return path, nil
}

// TempFile creates a randomly-suffixed temporary file in dir for
// intermediate driver output, matching §6's "Persisted state" note
// ("Temporary files are created with random suffixes and deleted on
// success; kept on failure to aid diagnosis").
func TempFile(dir, pattern string) (*os.File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, ioError(diag.ErrPermissionDenied, fmt.Sprintf("creating temp file in %s: %v", dir, err))
	}
	return f, nil
}

// CleanupOnSuccess removes a temp file the driver no longer needs;
// callers skip this on failure so the file survives for diagnosis (§6).
func CleanupOnSuccess(f *os.File) error {
	path := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
