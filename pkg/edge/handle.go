package edge

import (
	"sync"

	"gocv.io/x/gocv"
)

// Handle identifies a caller-owned buffer registered with a Registry.
// The zero Handle is never issued.
type Handle uint64

// Registry maps opaque handles to caller-owned Mats so that a foreign
// caller can refer to buffers by number without the processor ever
// reinterpreting raw addresses. The registry never closes a Mat; the
// caller keeps ownership and must Release before closing it.
type Registry struct {
	mu      sync.RWMutex
	next    Handle
	buffers map[Handle]*gocv.Mat
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		buffers: make(map[Handle]*gocv.Mat),
	}
}

// Register records m and returns its handle. A closed Mat is rejected.
func (r *Registry) Register(m *gocv.Mat) (Handle, error) {
	if released(m) {
		return 0, ErrNilBuffer
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.buffers[r.next] = m
	return r.next, nil
}

// Lookup returns the Mat behind h.
func (r *Registry) Lookup(h Handle) (*gocv.Mat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.buffers[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return m, nil
}

// Release forgets h. Releasing an unknown handle is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	delete(r.buffers, h)
	r.mu.Unlock()
}

// Len returns the number of registered buffers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buffers)
}

// Process resolves both handles and runs p on the pair.
func (r *Registry) Process(p *Processor, in, out Handle) error {
	src, err := r.Lookup(in)
	if err != nil {
		return err
	}
	dst, err := r.Lookup(out)
	if err != nil {
		return err
	}
	return p.Process(src, dst)
}
