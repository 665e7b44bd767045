/*
Copyright 2026 The Launchline Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package process starts and waits on the sequenced OS processes. It knows two
// launch shapes: detached background processes (the helper) and a foreground
// process whose exit code the caller adopts (the primary).
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"k8s.io/klog/v2"
)

// ErrEmptyCommand is returned when a Command has no program to run.
var ErrEmptyCommand = errors.New("empty command")

// Command describes a process to launch.
type Command struct {
	Program string
	Args    []string
	Dir     string
	// Env entries are appended to the inherited environment.
	Env []string
}

// ExitResult carries a finished process's exit code. Err is set when waiting
// itself failed, not when the process exited non-zero.
type ExitResult struct {
	Code int
	Err  error
}

// Handle is a started detached process. The PID is exposed for logging and
// observability only.
type Handle struct {
	cmd    *exec.Cmd
	result ExitResult
	exited chan struct{}
}

func (c Command) build() (*exec.Cmd, error) {
	if c.Program == "" {
		return nil, ErrEmptyCommand
	}
	cmd := exec.Command(c.Program, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	return cmd, nil
}

// Start launches the command detached, in its own process group, with its
// output joined to the sequencer's streams. It does not block.
func Start(ctx context.Context, c Command) (*Handle, error) {
	logger := klog.FromContext(ctx)

	cmd, err := c.build()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.Program, err)
	}
	logger.Info("Started detached process", "program", c.Program, "pid", cmd.Process.Pid)

	h := &Handle{cmd: cmd, exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		h.result = ExitResult{Code: codeFromWait(cmd.ProcessState, err), Err: waitFailure(err)}
		close(h.exited)
	}()
	return h, nil
}

func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Exited is closed once the process has exited. Any number of waiters may
// select on it.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// Result returns the process's exit result. It is valid only after Exited is
// closed; every reader observes the same latched value.
func (h *Handle) Result() ExitResult {
	return h.result
}

// Terminate sends SIGTERM to the process group and escalates to SIGKILL if
// the process has not exited within grace. Best effort only.
func (h *Handle) Terminate(grace time.Duration) {
	_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGTERM)
	select {
	case <-h.exited:
	case <-time.After(grace):
		_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGKILL)
	}
}

// Run launches the command in the foreground with inherited stdio and blocks
// until it exits. A cancelled context sends SIGTERM followed by SIGKILL after
// the grace period; callers translate container termination signals into
// context cancellation so they reach the child exactly once. The returned
// code is the child's exit code, including the 128+signal convention for
// signal-caused deaths. onStart, if non-nil, is invoked with the child's PID
// once it is running.
func Run(ctx context.Context, c Command, grace time.Duration, onStart func(pid int)) (int, error) {
	logger := klog.FromContext(ctx)

	cmd, err := c.build()
	if err != nil {
		return -1, err
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start %s: %w", c.Program, err)
	}
	logger.Info("Started foreground process", "program", c.Program, "pid", cmd.Process.Pid)
	if onStart != nil {
		onStart(cmd.Process.Pid)
	}

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		logger.Info("Terminating foreground process", "pid", cmd.Process.Pid)
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case err = <-waited:
		case <-time.After(grace):
			_ = cmd.Process.Kill()
			err = <-waited
		}
	case err = <-waited:
	}
	logger.Info("Foreground process exited", "pid", cmd.Process.Pid, "code", codeFromWait(cmd.ProcessState, err))
	return codeFromWait(cmd.ProcessState, err), waitFailure(err)
}

// codeFromWait maps a wait outcome to the exit code the sequencer adopts.
func codeFromWait(state *os.ProcessState, err error) int {
	if state == nil {
		return -1
	}
	if state.Exited() {
		return state.ExitCode()
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if err != nil {
		return -1
	}
	return state.ExitCode()
}

// waitFailure filters out ExitError: a non-zero exit is a result, not an
// error, because the code is propagated as-is.
func waitFailure(err error) error {
	var exitErr *exec.ExitError
	if err == nil || errors.As(err, &exitErr) {
		return nil
	}
	return err
}
