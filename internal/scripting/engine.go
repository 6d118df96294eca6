// Package scripting evaluates JavaScript predicates against captured
// requests, used by `tail --where`.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/sadopc/gomibako/internal/record"
)

var ErrEmptyScript = errors.New("empty script")

// DefaultTimeout bounds one predicate evaluation.
const DefaultTimeout = 5 * time.Second

// Engine runs predicates with a per-evaluation timeout.
type Engine struct {
	timeout time.Duration
}

// NewEngine creates a new scripting engine with the given timeout.
func NewEngine(timeout time.Duration) *Engine {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Engine{timeout: timeout}
}

// Filter is a compiled predicate.
type Filter struct {
	engine  *Engine
	source  string
	program *goja.Program
}

// Compile parses a predicate expression or script. The value of its last
// statement decides the match.
func (e *Engine) Compile(script string) (*Filter, error) {
	if script == "" {
		return nil, ErrEmptyScript
	}
	prog, err := goja.Compile("where", script, false)
	if err != nil {
		return nil, fmt.Errorf("compiling script: %w", err)
	}
	return &Filter{engine: e, source: script, program: prog}, nil
}

// Match compiles script and evaluates it against r.
func (e *Engine) Match(script string, r record.Request) (bool, error) {
	f, err := e.Compile(script)
	if err != nil {
		return false, err
	}
	return f.Match(r)
}

// String returns the predicate source.
func (f *Filter) String() string { return f.source }

// Match reports whether r satisfies the predicate.
func (f *Filter) Match(r record.Request) (bool, error) {
	vm := goja.New()
	registerRequest(vm, r)

	ctx, cancel := context.WithTimeout(context.Background(), f.engine.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("script timeout exceeded")
		case <-done:
		}
	}()

	v, err := vm.RunProgram(f.program)
	close(done)

	if err != nil {
		return false, fmt.Errorf("script error: %w", err)
	}
	if v == nil {
		return false, nil
	}
	return v.ToBoolean(), nil
}
