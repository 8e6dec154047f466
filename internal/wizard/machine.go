package wizard

import "sync"

// AudioStopper silences any preview playback before the visible step changes.
type AudioStopper interface {
	StopAll()
}

type AudioStopperFunc func()

func (f AudioStopperFunc) StopAll() { f() }

// Machine drives the five-step creation flow.
type Machine struct {
	mu      sync.Mutex
	step    int
	data    Data
	stopper AudioStopper
}

func NewMachine(stopper AudioStopper) *Machine {
	if stopper == nil {
		stopper = AudioStopperFunc(func() {})
	}
	return &Machine{
		step:    FirstStep,
		data:    NewDefaultData(),
		stopper: stopper,
	}
}

func (m *Machine) Step() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

func (m *Machine) Data() Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

func (m *Machine) Next() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step < LastStep {
		m.transition(m.step + 1)
	}
}

func (m *Machine) Prev() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step > FirstStep {
		m.transition(m.step - 1)
	}
}

// GoTo jumps to step. Out-of-range steps are ignored.
func (m *Machine) GoTo(step int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if step < FirstStep || step > LastStep {
		return
	}
	m.transition(step)
}

func (m *Machine) transition(step int) {
	m.stopper.StopAll()
	m.step = step
}

// CanAdvance reports whether the current step is valid.
func (m *Machine) CanAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return IsStepValid(m.step, m.data)
}

func (m *Machine) Dispatch(msg Msg) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := Reduce(m.data, msg)
	if err != nil {
		return err
	}
	m.data = next
	return nil
}

// Snapshot validates every step and returns a copy of the collected data. The
// machine is left untouched so a failed generation can be retried.
func (m *Machine) Snapshot() (Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ValidateAll(m.data); err != nil {
		return Data{}, err
	}
	return m.data, nil
}

// Reset restores the defaults at step 1.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = NewDefaultData()
	m.step = FirstStep
}

// Submit validates every step, returns the collected data and resets the machine.
func (m *Machine) Submit() (Data, error) {
	data, err := m.Snapshot()
	if err != nil {
		return Data{}, err
	}
	m.Reset()
	return data, nil
}
