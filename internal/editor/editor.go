// Package editor holds the exhibit editor panels: the record list and the
// record form, which take turns in a single container.
package editor

import "sync"

// View names what the editor container shows.
type View string

const (
	ViewNone    View = ""
	ViewRecords View = "records"
	ViewRecord  View = "record"
)

// Container is the editor panel slot. One view is shown at a time.
type Container struct {
	mu    sync.Mutex
	view  View
	route string
}

// Show replaces the current view.
func (c *Container) Show(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

// Navigate records the editor route and clears the container.
func (c *Container) Navigate(route string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.route = route
	c.view = ViewNone
}

// View returns the shown view.
func (c *Container) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Route returns the last route navigated to.
func (c *Container) Route() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}
