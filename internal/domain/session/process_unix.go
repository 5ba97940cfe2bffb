//go:build unix

package session

import (
	"os"
	"os/exec"
	"syscall"
)

// configureProcAttr puts the child in its own process group so the whole
// tree (editor plus helpers) can be signalled at once.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalProcess(p *os.Process, graceful bool) error {
	if p == nil {
		return os.ErrProcessDone
	}
	sig := syscall.SIGKILL
	if graceful {
		sig = syscall.SIGTERM
	}
	if err := syscall.Kill(-p.Pid, sig); err == nil {
		return nil
	}
	return p.Signal(sig)
}
