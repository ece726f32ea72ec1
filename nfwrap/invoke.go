package nfwrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Launcher runs an invocation to completion
type Launcher interface {
	Launch(ctx context.Context, inv *Invocation) error
}

// ProcessLauncher runs the engine as a child process in its own process group.
// Cancelling ctx sends SIGTERM to the group, then SIGKILL once GracePeriod has passed.
type ProcessLauncher struct {
	Stdout      io.Writer
	Stderr      io.Writer
	GracePeriod time.Duration
}

// NewProcessLauncher passes the engine's output straight through to ours
func NewProcessLauncher(grace time.Duration) *ProcessLauncher {
	return &ProcessLauncher{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		GracePeriod: grace,
	}
}

// Launch blocks until the engine exits.
// A non-zero exit comes back as *EngineExecutionError carrying the exit code.
func (l *ProcessLauncher) Launch(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return &EngineExecutionError{-1, fmt.Errorf("empty command")}
	}
	cmd := exec.Command(inv.Args[0], inv.Args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = overlayEnv(os.Environ(), inv.Env)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	logrus.WithFields(logrus.Fields{
		"dir":  inv.Dir,
		"args": inv.Args,
	}).Info("launching engine")
	if err := cmd.Start(); err != nil {
		return &EngineExecutionError{-1, fmt.Errorf("failed to start engine: %w", err)}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		logrus.Warnf("run cancelled, stopping engine process group %d", cmd.Process.Pid)
		err = l.terminate(cmd.Process.Pid, done)
	}
	return exitError(err)
}

// SIGTERM the group, give it the grace period, then SIGKILL
func (l *ProcessLauncher) terminate(pid int, done <-chan error) error {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	timer := time.NewTimer(l.GracePeriod)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		logrus.Warnf("engine did not stop within %v, killing process group %d", l.GracePeriod, pid)
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		return <-done
	}
}

func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &EngineExecutionError{exitErr.ExitCode(), err}
	}
	return &EngineExecutionError{-1, err}
}

// overlay wins over base; keys are added in sorted order so the result is stable
func overlayEnv(base []string, overlay map[string]string) []string {
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := overlay[name]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}
