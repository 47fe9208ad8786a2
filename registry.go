package waveview

import "sync"

// Process-wide registry of live instances, for bulk teardown.
var (
	registryMu sync.Mutex
	registry   = make(map[*Instance]struct{})
)

func register(in *Instance) {
	registryMu.Lock()
	registry[in] = struct{}{}
	registryMu.Unlock()
}

func unregister(in *Instance) {
	registryMu.Lock()
	delete(registry, in)
	registryMu.Unlock()
}

// Instances returns every live instance. The slice is a snapshot;
// instances created or destroyed afterwards are not reflected.
func Instances() []*Instance {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*Instance, 0, len(registry))
	for in := range registry {
		out = append(out, in)
	}
	return out
}

// DestroyAll destroys every live instance.
func DestroyAll() {
	for _, in := range Instances() {
		in.Destroy()
	}
}
