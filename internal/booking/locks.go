package booking

import "sync"

// vehicleLocks hands out one mutex per vehicle id, so mutations on the
// same vehicle serialize while different vehicles proceed independently.
type vehicleLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newVehicleLocks() *vehicleLocks {
	return &vehicleLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the per-vehicle mutex and returns its unlock func.
func (l *vehicleLocks) Lock(vehicleID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[vehicleID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[vehicleID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
