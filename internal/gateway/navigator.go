package gateway

import "sync"

// Locations the gateway and the auth service navigate to.
const (
	LoginLocation     = "/login"
	DashboardLocation = "/dashboard"
)

// Navigator is the current UI location. A failed refresh sends the user
// to LoginLocation.
type Navigator interface {
	Location() string
	Navigate(path string)
}

// MemoryNavigator records the location in memory. The CLI inspects it after
// a command to decide whether to print a re-login hint.
type MemoryNavigator struct {
	mu       sync.Mutex
	location string
	visits   []string
}

func NewMemoryNavigator(start string) *MemoryNavigator {
	return &MemoryNavigator{location: start}
}

func (n *MemoryNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *MemoryNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
	n.visits = append(n.visits, path)
}

// Visits returns every location navigated to, oldest first.
func (n *MemoryNavigator) Visits() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visits...)
}
