// Package rwlock provides a writer-preferring reader/writer lock: once a
// writer is waiting, newly arriving readers queue behind it instead of
// starving it. Readers already in the critical section are left alone.
//
// Go's sync.RWMutex does not document this guarantee, so the vnode cache
// and share table take their lock from here rather than from
// sync.RWMutex directly. The server's session list is guarded by a plain
// sync.Mutex, not by this lock.
package rwlock

import "sync"

// RWLock is a writer-preferring reader/writer lock. The zero value is not
// usable; construct one with New.
//
// The method names (BeginReading/EndReading/BeginWriting/EndWriting) match
// the four operations of the lock this package is modeled on, a BeOS
// counting-semaphore implementation that queued new readers behind a
// waiting writer. That implementation used five semaphores to get the
// same effect that a condition variable gives directly in Go.
type RWLock struct {
	mu sync.Mutex
	// cond is signaled whenever readers, writing, or writersWaiting
	// changes in a way that might unblock a waiter.
	cond *sync.Cond

	readers        int  // count of active readers
	writing        bool // a writer holds the lock
	writersWaiting int  // writers blocked in BeginWriting
}

// New returns a ready-to-use RWLock.
func New() *RWLock {
	l := &RWLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// BeginReading blocks until no writer holds the lock and no writer is
// waiting, then registers the caller as an active reader.
func (l *RWLock) BeginReading() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.writing || l.writersWaiting > 0 {
		l.cond.Wait()
	}
	l.readers++
}

// EndReading releases a reader previously registered with BeginReading.
func (l *RWLock) EndReading() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers == 0 {
		panic("rwlock: EndReading with no active reader")
	}
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
}

// BeginWriting blocks until no reader or writer holds the lock, then
// takes the lock for writing. The writersWaiting counter is incremented
// for the full duration of the wait, so any reader that calls
// BeginReading while this writer is queued blocks behind it rather than
// slipping in ahead.
func (l *RWLock) BeginWriting() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writersWaiting++
	for l.writing || l.readers > 0 {
		l.cond.Wait()
	}
	l.writersWaiting--
	l.writing = true
}

// EndWriting releases the lock previously taken with BeginWriting.
func (l *RWLock) EndWriting() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.writing {
		panic("rwlock: EndWriting without a held write lock")
	}
	l.writing = false
	l.cond.Broadcast()
}
