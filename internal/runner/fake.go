package runner

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// Call records one invocation made through a Fake runner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// Line returns the call rendered as a command line.
func (c Call) Line() string {
	return commandLine(c.Name, c.Args)
}

// Response is what a Fake returns for a matching command line prefix.
// Stderr is appended to Output by RunOutput and dropped by RunStdout.
type Response struct {
	Output []byte
	Stderr []byte
	Err    error
}

// Fake is an in-memory CommandRunner for tests. Responses are matched by the
// longest registered command-line prefix.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]Response

	// OnCall, if set, runs before the response is returned.
	OnCall func(Call)
}

// NewFake creates an empty Fake runner.
func NewFake() *Fake {
	return &Fake{responses: map[string]Response{}}
}

// On registers a response for commands whose line starts with prefix.
func (f *Fake) On(prefix string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
	return f
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns the recorded calls rendered as command lines.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Line()
	}
	return out
}

// Run implements CommandRunner.
func (f *Fake) Run(ctx context.Context, dir, name string, args ...string) error {
	_, err := f.RunOutput(ctx, dir, name, args...)
	return err
}

// RunOutput implements CommandRunner.
func (f *Fake) RunOutput(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	resp, line, ok := f.record(dir, name, args)
	if !ok {
		return nil, nil
	}
	out := append(append([]byte(nil), resp.Output...), resp.Stderr...)
	if resp.Err != nil {
		return out, &ExitError{Command: line, Output: strings.TrimSpace(string(out)), Err: resp.Err}
	}
	return out, nil
}

// RunStdout implements CommandRunner.
func (f *Fake) RunStdout(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	resp, line, ok := f.record(dir, name, args)
	if !ok {
		return nil, nil
	}
	if resp.Err != nil {
		return resp.Output, &ExitError{Command: line, Output: strings.TrimSpace(string(resp.Stderr)), Err: resp.Err}
	}
	return resp.Output, nil
}

// record logs the call and returns the response of the longest matching
// prefix.
func (f *Fake) record(dir, name string, args []string) (Response, string, bool) {
	call := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	if f.OnCall != nil {
		f.OnCall(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)

	line := call.Line()
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Response{}, line, false
	}
	return f.responses[best], line, true
}

// ExitStatus is an error carrying a process exit code, for scripting Fake
// responses that model non-zero exits.
type ExitStatus int

func (e ExitStatus) Error() string { return "exit status " + strconv.Itoa(int(e)) }

// ExitCode returns the status.
func (e ExitStatus) ExitCode() int { return int(e) }
