// Package wizard drives multi-step forms whose steps are gated by validation.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBlocked is returned when the gate refuses to leave the current step
	ErrBlocked = errors.New("step is not complete")
	// ErrInFlight is returned while the completion callback is running
	ErrInFlight = errors.New("submission already in progress")
	// ErrCompleted is returned by Next once the wizard has completed
	ErrCompleted = errors.New("wizard already completed")
	// ErrStepOutOfRange is returned by GoTo for targets outside 1..TotalSteps
	ErrStepOutOfRange = errors.New("step out of range")
)

// Step describes one page of the wizard
type Step struct {
	Name string
}

// Engine holds the wizard state. It is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	steps      []Step
	current    int
	data       map[int]map[string]string
	inFlight   bool
	complete   bool
	gate       func(step int) bool
	onComplete func(ctx context.Context) error
	onChange   func(step int)
}

// Option configures an Engine
type Option func(*Engine)

// WithGate sets the check that must pass before leaving a step.
// Without a gate every step may be left. The gate runs while the engine is
// locked and must not call back into it.
func WithGate(gate func(step int) bool) Option {
	return func(e *Engine) {
		e.gate = gate
	}
}

// WithOnComplete sets the callback run by Next on the last step
func WithOnComplete(fn func(ctx context.Context) error) Option {
	return func(e *Engine) {
		e.onComplete = fn
	}
}

// WithOnStepChange is called after the current step changed
func WithOnStepChange(fn func(step int)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithInitialStep starts the wizard at step n, clamped to the valid range
func WithInitialStep(n int) Option {
	return func(e *Engine) {
		e.current = n
	}
}

// New creates a wizard over steps. At least one step is required.
func New(steps []Step, opts ...Option) (*Engine, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("wizard needs at least one step")
	}
	e := &Engine{
		steps:   append([]Step(nil), steps...),
		current: 1,
		data:    make(map[int]map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current = clamp(e.current, 1, len(e.steps))
	return e, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func (e *Engine) canLeave(step int) bool {
	return e.gate == nil || e.gate(step)
}

// Next advances one step when the gate allows it. On the last step it runs
// the completion callback instead. The step never moves past the last one.
// Once completed, Next returns ErrCompleted until the wizard moves back.
func (e *Engine) Next(ctx context.Context) error {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return ErrInFlight
	}
	if e.complete {
		e.mu.Unlock()
		return ErrCompleted
	}
	step := e.current
	if !e.canLeave(step) {
		e.mu.Unlock()
		return ErrBlocked
	}

	if step < len(e.steps) {
		e.current++
		changed := e.current
		e.mu.Unlock()
		e.changed(changed)
		return nil
	}

	onComplete := e.onComplete
	e.inFlight = true
	e.mu.Unlock()

	var err error
	if onComplete != nil {
		err = onComplete(ctx)
	}

	e.mu.Lock()
	e.inFlight = false
	e.complete = err == nil
	e.mu.Unlock()
	return err
}

// Back moves one step back. It is a no-op on the first step.
func (e *Engine) Back() {
	e.mu.Lock()
	if e.current <= 1 || e.inFlight {
		e.mu.Unlock()
		return
	}
	e.current--
	e.complete = false
	changed := e.current
	e.mu.Unlock()
	e.changed(changed)
}

// GoTo jumps to step. Going back is always allowed. Going forward requires
// the gate to pass for every step being skipped. The jump stops at the first
// blocked step and ErrBlocked is returned.
func (e *Engine) GoTo(step int) error {
	e.mu.Lock()
	if step < 1 || step > len(e.steps) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, step)
	}
	if e.inFlight {
		e.mu.Unlock()
		return ErrInFlight
	}

	start := e.current
	var err error
	if step <= e.current {
		e.current = step
	} else {
		for e.current < step {
			if !e.canLeave(e.current) {
				err = ErrBlocked
				break
			}
			e.current++
		}
	}
	if e.current != start {
		e.complete = false
	}
	changed := e.current
	e.mu.Unlock()

	if changed != start {
		e.changed(changed)
	}
	return err
}

func (e *Engine) changed(step int) {
	if e.onChange != nil {
		e.onChange(step)
	}
}

// Reset returns to the first step and clears all step data
func (e *Engine) Reset() {
	e.mu.Lock()
	e.current = 1
	e.complete = false
	e.data = make(map[int]map[string]string)
	e.mu.Unlock()
	e.changed(1)
}

// SetData stores a value for step
func (e *Engine) SetData(step int, key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.data[step] == nil {
		e.data[step] = make(map[string]string)
	}
	e.data[step][key] = value
}

// Data returns a copy of the values stored for step
func (e *Engine) Data(step int) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.data[step]))
	for k, v := range e.data[step] {
		out[k] = v
	}
	return out
}

func (e *Engine) CurrentStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) TotalSteps() int {
	return len(e.steps)
}

// Step returns the description of step n (1-based)
func (e *Engine) Step(n int) (Step, bool) {
	if n < 1 || n > len(e.steps) {
		return Step{}, false
	}
	return e.steps[n-1], true
}

func (e *Engine) IsFirst() bool {
	return e.CurrentStep() == 1
}

func (e *Engine) IsLast() bool {
	return e.CurrentStep() == len(e.steps)
}

// IsComplete reports whether the last completion callback succeeded
func (e *Engine) IsComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.complete
}

// InFlight reports whether the completion callback is running
func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// Progress is the fraction of steps reached, 1 on the last step
func (e *Engine) Progress() float64 {
	if len(e.steps) == 1 {
		return 1
	}
	return float64(e.CurrentStep()-1) / float64(len(e.steps)-1)
}
