package platform

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/process"
)

// TerminateTree kills a process and all of its descendants, children first.
// The sender and login helpers start a headless browser, which would otherwise
// outlive them. A pid that is already gone is not an error.
func TerminateTree(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil
		}
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	return killTree(p)
}

func killTree(p *process.Process) error {
	var errs []error
	children, _ := p.Children()
	for _, child := range children {
		if err := killTree(child); err != nil {
			errs = append(errs, err)
		}
	}
	if running, _ := p.IsRunning(); running {
		if err := p.Kill(); err != nil {
			errs = append(errs, fmt.Errorf("failed to kill process %d: %w", p.Pid, err))
		}
	}
	return errors.Join(errs...)
}
