package steprunner

import (
	"errors"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// runPTY runs cmd on a new pseudo-terminal and copies everything it prints
// into out. pty.Start makes the child a session leader, which also makes it
// the leader of its process group.
func runPTY(cmd *exec.Cmd, out io.Writer) error {
	tty, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer tty.Close()

	_, copyErr := io.Copy(out, tty)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return waitErr
	}
	// Linux reports EIO on the master once the child side is closed.
	if copyErr != nil && !errors.Is(copyErr, syscall.EIO) {
		return copyErr
	}
	return nil
}
