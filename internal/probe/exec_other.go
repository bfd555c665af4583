//go:build !unix

package probe

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}

// killProcessTree only reaches the direct child here; KillGrace bounds
// how long descendants can keep the output open.
func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
