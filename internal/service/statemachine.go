package service

import "sync"

// State handles a particular application state.
//
// It blocks until a state transition is necessary. If next is nil the
// service stops: Done() closes and Err() returns err. Otherwise next is
// entered and the process repeats.
type State func() (next State, err error)

// Finalizer runs once, immediately before the state machine stops.
type Finalizer func(error) error

// StateMachine is a state-machine based implementation of Service. It also
// serializes external calls onto the goroutine running the state machine via
// Do/DoGraceful, so a single actor loop can own all of its mutable state
// without a mutex.
type StateMachine struct {
	Forceful  chan struct{}
	Graceful  chan struct{}
	Finalized chan struct{}
	Commands  chan request

	state     State
	finalizer Finalizer

	mutex sync.RWMutex
	err   error
}

// NewStateMachine returns a new state machine starting in state s.
func NewStateMachine(s State, f Finalizer) *StateMachine {
	return &StateMachine{
		Forceful:  make(chan struct{}),
		Graceful:  make(chan struct{}),
		Finalized: make(chan struct{}),
		Commands:  make(chan request),

		state:     s,
		finalizer: f,
	}
}

// Run enters the initial state and runs until the service stops. It must be
// called from its own goroutine.
func (s *StateMachine) Run() {
	var err error

	for s.state != nil && err == nil {
		s.state, err = s.state()
	}

	if s.finalizer != nil {
		err = s.finalizer(err)
	}

	s.mutex.Lock()
	s.err = err
	s.mutex.Unlock()

	s.close()
}

// Done returns a channel that is closed when the service is stopped.
func (s *StateMachine) Done() <-chan struct{} {
	return s.Finalized
}

// Err returns the error that caused the Done() channel to close, if any.
func (s *StateMachine) Err() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.err
}

// Stop halts the service immediately.
func (s *StateMachine) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	select {
	case <-s.Forceful:
	default:
		close(s.Forceful)
	}
}

// GracefulStop halts the service once it has finished any pending work.
func (s *StateMachine) GracefulStop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	select {
	case <-s.Forceful:
		return
	case <-s.Graceful:
		return
	default:
		close(s.Graceful)
	}
}

type request struct {
	fn    func() error
	reply chan<- error
}

// Do enqueues fn to be run on the state-machine goroutine, blocking until it
// completes. It returns ErrStopped if the machine is stopping or stopped.
func (s *StateMachine) Do(fn func() error) error {
	reply := make(chan error, 1)
	req := request{fn, reply}

	select {
	case s.Commands <- req:
	case <-s.Graceful:
		return ErrStopped
	case <-s.Forceful:
		return ErrStopped
	case <-s.Finalized:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-s.Graceful:
		return ErrStopped
	case <-s.Forceful:
		return ErrStopped
	case <-s.Finalized:
		return ErrStopped
	}
}

// DoGraceful is like Do, but still enqueues fn while the machine is
// gracefully stopping (only a forceful stop or final close reject it).
func (s *StateMachine) DoGraceful(fn func() error) error {
	reply := make(chan error, 1)
	req := request{fn, reply}

	select {
	case s.Commands <- req:
	case <-s.Forceful:
		return ErrStopped
	case <-s.Finalized:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-s.Forceful:
		return ErrStopped
	case <-s.Finalized:
		return ErrStopped
	}
}

// Execute runs a command request queued by Do/DoGraceful.
func (s *StateMachine) Execute(req request) {
	req.reply <- req.fn()
}

func (s *StateMachine) close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	select {
	case <-s.Finalized:
		return
	default:
	}

	close(s.Finalized)

	select {
	case <-s.Forceful:
	default:
		close(s.Forceful)
	}

	select {
	case <-s.Graceful:
	default:
		close(s.Graceful)
	}
}
