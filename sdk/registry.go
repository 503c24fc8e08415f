package sdk

import (
	"sync"

	"github.com/openclawcity/citystream/pkg/types"
)

// Registry maps account identity to its active service so outbound replies
// can be routed. It is passed explicitly to whoever needs it; there is no
// process-wide instance.
type Registry struct {
	mu sync.RWMutex
	m  map[string]*Service
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]*Service)}
}

// Register installs svc as the active service for its account and returns
// the replaced service, if any. The new entry is visible before the old
// instance is stopped, so a concurrent lookup can never observe a gap.
func (r *Registry) Register(svc *Service) *Service {
	r.mu.Lock()
	old := r.m[svc.account]
	r.m[svc.account] = svc
	r.mu.Unlock()

	if old != nil && old != svc {
		old.Stop()
		return old
	}
	return nil
}

// Lookup returns the active service for an account, or nil.
func (r *Registry) Lookup(account string) *Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m[account]
}

// Remove deletes the entry for svc's account, but only if svc is still the
// active instance. It does not stop the service.
func (r *Registry) Remove(svc *Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m[svc.account] == svc {
		delete(r.m, svc.account)
	}
}

// SendReply routes a reply to the account's active service. It reports
// whether a service was registered; delivery is still best-effort (a
// disconnected service drops the reply).
func (r *Registry) SendReply(account string, reply types.Reply) bool {
	svc := r.Lookup(account)
	if svc == nil {
		return false
	}
	svc.SendReply(reply)
	return true
}
