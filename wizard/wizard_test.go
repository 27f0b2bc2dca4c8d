package wizard

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steps(n int) []Step {
	out := make([]Step, n)
	for i := range out {
		out[i] = Step{Name: string(rune('A' + i))}
	}
	return out
}

func TestNewRequiresSteps(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestInitialStepIsClamped(t *testing.T) {
	e, err := New(steps(3), WithInitialStep(9))
	require.NoError(t, err)
	assert.Equal(t, 3, e.CurrentStep())

	e, err = New(steps(3), WithInitialStep(-2))
	require.NoError(t, err)
	assert.Equal(t, 1, e.CurrentStep())
}

func TestNextAndBack(t *testing.T) {
	var changes []int
	e, err := New(steps(3), WithOnStepChange(func(s int) { changes = append(changes, s) }))
	require.NoError(t, err)

	assert.True(t, e.IsFirst())
	assert.Equal(t, 0.0, e.Progress())
	require.NoError(t, e.Next(context.Background()))
	require.NoError(t, e.Next(context.Background()))
	assert.True(t, e.IsLast())
	assert.Equal(t, 1.0, e.Progress())

	e.Back()
	e.Back()
	e.Back()
	assert.Equal(t, 1, e.CurrentStep())
	assert.Equal(t, []int{2, 3, 2, 1}, changes)
}

func TestGateBlocksNext(t *testing.T) {
	allowed := false
	e, err := New(steps(2), WithGate(func(int) bool { return allowed }))
	require.NoError(t, err)

	assert.ErrorIs(t, e.Next(context.Background()), ErrBlocked)
	assert.Equal(t, 1, e.CurrentStep())

	allowed = true
	require.NoError(t, e.Next(context.Background()))
	assert.Equal(t, 2, e.CurrentStep())
}

func TestCompletionOnLastStep(t *testing.T) {
	calls := 0
	fail := true
	e, err := New(steps(2), WithInitialStep(2), WithOnComplete(func(context.Context) error {
		calls++
		if fail {
			return errors.New("server said no")
		}
		return nil
	}))
	require.NoError(t, err)

	assert.Error(t, e.Next(context.Background()))
	assert.False(t, e.IsComplete())
	assert.Equal(t, 2, e.CurrentStep())

	fail = false
	require.NoError(t, e.Next(context.Background()))
	assert.True(t, e.IsComplete())
	assert.Equal(t, 2, e.CurrentStep(), "completion does not advance")
	assert.Equal(t, 2, calls)
}

func TestNextAfterCompletion(t *testing.T) {
	calls := 0
	e, err := New(steps(2), WithInitialStep(2), WithOnComplete(func(context.Context) error {
		calls++
		if calls > 1 {
			return errors.New("already registered")
		}
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, e.Next(context.Background()))
	assert.ErrorIs(t, e.Next(context.Background()), ErrCompleted)
	assert.True(t, e.IsComplete())
	assert.Equal(t, 1, calls)

	// stepping back reopens the last step
	e.Back()
	require.NoError(t, e.Next(context.Background()))
	assert.Error(t, e.Next(context.Background()))
	assert.False(t, e.IsComplete())
	assert.Equal(t, 2, calls)
}

func TestNextWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	e, err := New(steps(1), WithOnComplete(func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, e.Next(context.Background()))
	}()
	<-started
	assert.True(t, e.InFlight())
	assert.ErrorIs(t, e.Next(context.Background()), ErrInFlight)
	assert.ErrorIs(t, e.GoTo(1), ErrInFlight)
	close(release)
	wg.Wait()
	assert.False(t, e.InFlight())
	assert.True(t, e.IsComplete())
}

func TestGoTo(t *testing.T) {
	blocked := map[int]bool{3: true}
	e, err := New(steps(5), WithGate(func(s int) bool { return !blocked[s] }))
	require.NoError(t, err)

	assert.ErrorIs(t, e.GoTo(0), ErrStepOutOfRange)
	assert.ErrorIs(t, e.GoTo(6), ErrStepOutOfRange)
	assert.Equal(t, 1, e.CurrentStep())

	assert.ErrorIs(t, e.GoTo(5), ErrBlocked)
	assert.Equal(t, 3, e.CurrentStep(), "stops at the first blocked step")

	require.NoError(t, e.GoTo(1))
	assert.Equal(t, 1, e.CurrentStep())

	delete(blocked, 3)
	require.NoError(t, e.GoTo(5))
	assert.Equal(t, 5, e.CurrentStep())
}

func TestStepDataAndReset(t *testing.T) {
	e, err := New(steps(3))
	require.NoError(t, err)
	e.SetData(1, "username", "bob")
	require.NoError(t, e.Next(context.Background()))

	d := e.Data(1)
	d["username"] = "mutated"
	assert.Equal(t, "bob", e.Data(1)["username"])

	s, ok := e.Step(2)
	assert.True(t, ok)
	assert.Equal(t, "B", s.Name)
	_, ok = e.Step(4)
	assert.False(t, ok)

	e.Reset()
	assert.Equal(t, 1, e.CurrentStep())
	assert.Empty(t, e.Data(1))
}

// Random walks never leave 1..total and never pass a closed gate.
func TestRandomWalkInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for run := 0; run < 200; run++ {
		total := 1 + rng.Intn(6)
		open := make(map[int]bool)
		for s := 1; s <= total; s++ {
			open[s] = rng.Intn(3) > 0
		}
		e, err := New(steps(total), WithGate(func(s int) bool { return open[s] }))
		require.NoError(t, err)

		for i := 0; i < 30; i++ {
			before := e.CurrentStep()
			switch rng.Intn(3) {
			case 0:
				err := e.Next(context.Background())
				if !open[before] {
					assert.ErrorIs(t, err, ErrBlocked)
					assert.Equal(t, before, e.CurrentStep())
				}
			case 1:
				e.Back()
				if before > 1 {
					assert.Equal(t, before-1, e.CurrentStep())
				}
			case 2:
				_ = e.GoTo(rng.Intn(total + 2))
			}
			cur := e.CurrentStep()
			assert.GreaterOrEqual(t, cur, 1)
			assert.LessOrEqual(t, cur, total)
			if cur > before {
				for s := before; s < cur; s++ {
					assert.True(t, open[s], "passed closed step %d", s)
				}
			}
		}
	}
}
