//go:build !unix

package session

import (
	"os"
	"os/exec"
)

func configureProcAttr(cmd *exec.Cmd) {}

// signalProcess falls back to Kill where interrupts are unsupported (Windows).
func signalProcess(p *os.Process, graceful bool) error {
	if p == nil {
		return os.ErrProcessDone
	}
	if graceful {
		if err := p.Signal(os.Interrupt); err == nil {
			return nil
		}
	}
	return p.Kill()
}
