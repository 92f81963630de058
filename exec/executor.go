// Package exec abstracts toolchain command execution for testability.
// Platform variants and the device log monitor run external tools (adb,
// xcrun, the packager CLI) through a CommandExecutor; tests inject a
// MockExecutor that returns pre-recorded responses and records calls.
package exec

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
)

// CommandExecutor abstracts command execution.
type CommandExecutor interface {
	// Run executes a command to completion and returns stdout, stderr,
	// and any error.
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error)

	// Output executes a command and returns its stdout.
	Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// Start starts a long-running command without waiting. The returned
	// handle can wait for completion or kill the process. The context
	// covers startup only; the spawned process outlives it and is
	// terminated solely through the handle's Kill.
	Start(ctx context.Context, dir string, name string, args ...string) (CommandHandle, error)
}

// CommandHandle represents a started command.
type CommandHandle interface {
	// Wait blocks until the command completes.
	Wait() error

	// Kill terminates the command's process.
	Kill() error
}

// RealExecutor executes commands using os/exec.
type RealExecutor struct{}

// NewRealExecutor returns a new RealExecutor.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

// Run executes a command and returns stdout, stderr, and any error.
func (e *RealExecutor) Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), err
}

// Output executes a command and returns stdout.
func (e *RealExecutor) Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.Output()
}

// Start starts a command without waiting for it to complete. The command
// is deliberately not bound to ctx: callers hold these processes (the
// packager, a log stream) across step and request boundaries, and a
// context-bound command would be killed as soon as the spawning step's
// context is canceled. Termination goes through CommandHandle.Kill.
func (e *RealExecutor) Start(ctx context.Context, dir string, name string, args ...string) (CommandHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &realCommandHandle{cmd: cmd}, nil
}

type realCommandHandle struct {
	cmd *exec.Cmd
}

func (h *realCommandHandle) Wait() error {
	return h.cmd.Wait()
}

func (h *realCommandHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

// MockResponse defines the response for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// CommandMatcher decides whether a command matches a mock rule.
type CommandMatcher func(dir, name string, args []string) bool

// MockRule pairs a matcher with its response.
type MockRule struct {
	Match    CommandMatcher
	Response MockResponse
}

// MockCall records a command invocation for verification.
type MockCall struct {
	Dir  string
	Name string
	Args []string
}

// MockExecutor returns pre-recorded responses for commands and records
// every invocation. Rules are matched in registration order; unmatched
// commands succeed with empty output.
type MockExecutor struct {
	mu    sync.RWMutex
	rules []MockRule
	calls []MockCall
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// AddRule adds a matching rule with its response.
func (e *MockExecutor) AddRule(match CommandMatcher, response MockResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, MockRule{Match: match, Response: response})
}

// AddPrefixMatch adds a rule matching commands whose args start with prefixArgs.
func (e *MockExecutor) AddPrefixMatch(name string, prefixArgs []string, response MockResponse) {
	e.AddRule(func(dir, n string, a []string) bool {
		if n != name || len(a) < len(prefixArgs) {
			return false
		}
		for i, arg := range prefixArgs {
			if a[i] != arg {
				return false
			}
		}
		return true
	}, response)
}

// Calls returns all recorded command invocations.
func (e *MockExecutor) Calls() []MockCall {
	e.mu.RLock()
	defer e.mu.RUnlock()
	calls := make([]MockCall, len(e.calls))
	copy(calls, e.calls)
	return calls
}

func (e *MockExecutor) findMatch(dir, name string, args []string) *MockResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, rule := range e.rules {
		if rule.Match(dir, name, args) {
			return &rule.Response
		}
	}
	return nil
}

func (e *MockExecutor) recordCall(dir, name string, args []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, MockCall{Dir: dir, Name: name, Args: args})
}

// Run executes a mocked command.
func (e *MockExecutor) Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error) {
	e.recordCall(dir, name, args)

	if resp := e.findMatch(dir, name, args); resp != nil {
		return resp.Stdout, resp.Stderr, resp.Err
	}
	return nil, nil, nil
}

// Output executes a mocked command.
func (e *MockExecutor) Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	e.recordCall(dir, name, args)

	if resp := e.findMatch(dir, name, args); resp != nil {
		return resp.Stdout, resp.Err
	}
	return nil, nil
}

// Start starts a mocked command. The returned handle waits until killed,
// mimicking a long-running process such as a log stream; like the real
// executor, the handle is not bound to ctx.
func (e *MockExecutor) Start(ctx context.Context, dir string, name string, args ...string) (CommandHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.recordCall(dir, name, args)

	if resp := e.findMatch(dir, name, args); resp != nil && resp.Err != nil {
		return nil, resp.Err
	}
	return newMockCommandHandle(), nil
}

type mockCommandHandle struct {
	done chan struct{}
	once sync.Once
}

func newMockCommandHandle() *mockCommandHandle {
	return &mockCommandHandle{done: make(chan struct{})}
}

func (h *mockCommandHandle) Wait() error {
	<-h.done
	return nil
}

func (h *mockCommandHandle) Kill() error {
	h.once.Do(func() { close(h.done) })
	return nil
}

// Ensure implementations satisfy the interface.
var _ CommandExecutor = (*RealExecutor)(nil)
var _ CommandExecutor = (*MockExecutor)(nil)
var _ CommandHandle = (*realCommandHandle)(nil)
var _ CommandHandle = (*mockCommandHandle)(nil)
