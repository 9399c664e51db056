// internal/dispatch/registry.go

package dispatch

import (
	"context"
	"sync"

	"github.com/carpediem-app/carpediem-backend/internal/profile"
)

// Call carries everything a method handler needs for one invocation.
type Call struct {
	// Request is the decoded request struct produced by Spec.NewRequest.
	Request interface{}

	// UserID and Profile are set for authenticated methods.
	UserID  int64
	Profile *profile.Profile
}

// Result is what a method handler returns on success.
type Result struct {
	// Body is serialized as the response.
	Body interface{}

	// SessionToken, when set, is attached to the response as the session
	// cookie.
	SessionToken string
}

// HandlerFunc executes one API method.
type HandlerFunc func(ctx context.Context, call *Call) (*Result, error)

// Spec describes a method: how to build its request, how to run it, and
// which access policy it requires.
type Spec struct {
	NewRequest            func() interface{}
	Handle                HandlerFunc
	RequiresAuth          bool
	RequiresFilledProfile bool
}

// Registry maps method names to their specs.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[string]Spec),
	}
}

// Register adds a method. Registering the same name twice replaces the
// earlier spec.
func (r *Registry) Register(name string, spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = spec
}

// Lookup returns the spec for a method name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.methods[name]
	return spec, ok
}

// Methods returns the registered method names.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}
