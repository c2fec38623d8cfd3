// Package redirects resolves post-transition navigation for the session
// manager: absolute URLs become hard navigations, everything else an in-app
// route replacement so back-navigation never returns to a pre-auth screen.
package redirects

import (
	"strings"
	"sync"
)

// Navigator performs the actual navigation. The host application supplies the
// implementation (router adapter, browser shell, test double).
type Navigator interface {
	// ReplaceRoute navigates to an in-app route without adding a history entry.
	ReplaceRoute(path string)
	// OpenURL performs a hard navigation to an absolute URL.
	OpenURL(url string)
}

// NopNavigator discards all navigations.
type NopNavigator struct{}

func (NopNavigator) ReplaceRoute(string) {}
func (NopNavigator) OpenURL(string)      {}

// Coordinator dispatches redirects and tracks a one-shot override that takes
// precedence over a transition's own default redirect. The override is
// consumed on the next Resolve whether or not it was used.
type Coordinator struct {
	mu        sync.Mutex
	navigator Navigator
	override  string
}

// NewCoordinator creates a Coordinator dispatching through the given Navigator.
func NewCoordinator(navigator Navigator) *Coordinator {
	if navigator == nil {
		navigator = NopNavigator{}
	}
	return &Coordinator{navigator: navigator}
}

// SetOverride queues a one-shot redirect target that wins over the next
// transition's default.
func (c *Coordinator) SetOverride(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.override = target
}

// Resolve picks the queued override if present, else defaultTarget, consumes
// the override, and dispatches the winner. An empty winner navigates nowhere.
func (c *Coordinator) Resolve(defaultTarget string) {
	c.mu.Lock()
	target := c.override
	c.override = ""
	c.mu.Unlock()

	if target == "" {
		target = defaultTarget
	}
	c.Navigate(target)
}

// Navigate dispatches target directly, without consulting or consuming the
// one-shot override. Used for hand-offs such as the two-factor login surface.
func (c *Coordinator) Navigate(target string) {
	if target == "" {
		return
	}
	if isAbsoluteURL(target) {
		c.navigator.OpenURL(target)
		return
	}
	c.navigator.ReplaceRoute(target)
}

func isAbsoluteURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
