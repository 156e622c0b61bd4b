// Package screen models which kiosk screen is showing as an explicit value.
package screen

// Screen identifies a kiosk screen.
type Screen string

const (
	Home      Screen = "home"
	Form      Screen = "form"
	Dashboard Screen = "dashboard"
)

// Transition is a requested screen change. Components return transitions
// instead of switching screens themselves.
type Transition struct {
	To Screen
}

var (
	// Stay keeps the current screen.
	Stay        = Transition{}
	ToHome      = Transition{To: Home}
	ToForm      = Transition{To: Form}
	ToDashboard = Transition{To: Dashboard}
)

// IsStay reports whether t leaves the screen unchanged.
func (t Transition) IsStay() bool { return t.To == "" }

// Router is an immutable screen state.
type Router struct {
	current  Screen
	previous Screen
}

// NewRouter starts on the home screen.
func NewRouter() Router {
	return Router{current: Home}
}

// Current returns the screen being shown.
func (r Router) Current() Screen { return r.current }

// Previous returns the screen shown before the last change.
func (r Router) Previous() Screen { return r.previous }

// Apply returns the router after t. Unknown screens are ignored.
func (r Router) Apply(t Transition) Router {
	if t.IsStay() || t.To == r.current || !valid(t.To) {
		return r
	}
	return Router{current: t.To, previous: r.current}
}

func valid(s Screen) bool {
	switch s {
	case Home, Form, Dashboard:
		return true
	}
	return false
}
