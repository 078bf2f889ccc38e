package shortcut

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
)

// Target receives routed commands.
type Target interface {
	AddTab()
	CloseCurrentTab()
	FocusAddressBar()
	ReloadCurrent()
	StopCurrent()
	GoBack()
	GoForward()
	NextTab()
	PreviousTab()
	SwitchToIndex(n int)
	ZoomIn()
	ZoomOut()
	ResetZoom()
	CopyCurrentURL()
	Submit()
}

// Router resolves key presses to commands.
type Router struct {
	bindings []Binding
	focused  func() bool
}

// NewRouter creates a Router over bindings, or DefaultBindings when none are
// given. focused reports whether the address input has focus; Submit only
// resolves while it does. A nil focused func is treated as never focused.
func NewRouter(focused func() bool, bindings ...Binding) *Router {
	if len(bindings) == 0 {
		bindings = DefaultBindings()
	}
	if focused == nil {
		focused = func() bool { return false }
	}
	return &Router{bindings: bindings, focused: focused}
}

// Bindings returns the routing table.
func (r *Router) Bindings() []Binding {
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Resolve returns the command bound to k. Disabled bindings never match.
func (r *Router) Resolve(k fmt.Stringer) (Command, bool) {
	for _, b := range r.bindings {
		if !key.Matches(k, b.Binding) {
			continue
		}
		if b.Command.Action == ActionSubmit && !r.focused() {
			return Command{}, false
		}
		return b.Command, true
	}
	return Command{}, false
}

// Route resolves k and dispatches the command to t. It reports whether k was
// handled.
func (r *Router) Route(k fmt.Stringer, t Target) bool {
	cmd, ok := r.Resolve(k)
	if !ok {
		return false
	}
	Dispatch(cmd, t)
	return true
}

// Dispatch invokes the Target method for cmd.
func Dispatch(cmd Command, t Target) {
	switch cmd.Action {
	case ActionAddTab:
		t.AddTab()
	case ActionCloseTab:
		t.CloseCurrentTab()
	case ActionFocusAddressBar:
		t.FocusAddressBar()
	case ActionReload:
		t.ReloadCurrent()
	case ActionStop:
		t.StopCurrent()
	case ActionGoBack:
		t.GoBack()
	case ActionGoForward:
		t.GoForward()
	case ActionNextTab:
		t.NextTab()
	case ActionPreviousTab:
		t.PreviousTab()
	case ActionSwitchToIndex:
		t.SwitchToIndex(cmd.Index)
	case ActionZoomIn:
		t.ZoomIn()
	case ActionZoomOut:
		t.ZoomOut()
	case ActionResetZoom:
		t.ResetZoom()
	case ActionCopyURL:
		t.CopyCurrentURL()
	case ActionSubmit:
		t.Submit()
	}
}

// ShortHelp implements help.KeyMap.
func (r *Router) ShortHelp() []key.Binding {
	return r.help(ActionAddTab, ActionCloseTab, ActionFocusAddressBar, ActionGoBack, ActionGoForward, ActionNextTab)
}

// FullHelp implements help.KeyMap.
func (r *Router) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		r.help(ActionAddTab, ActionCloseTab, ActionNextTab, ActionPreviousTab, ActionSwitchToIndex),
		r.help(ActionFocusAddressBar, ActionSubmit, ActionGoBack, ActionGoForward, ActionReload, ActionStop),
		r.help(ActionZoomIn, ActionZoomOut, ActionResetZoom, ActionCopyURL),
	}
}

// help returns the first binding of each action, in the order given. The
// direct tab chords collapse into a single entry.
func (r *Router) help(actions ...Action) []key.Binding {
	var out []key.Binding
	for _, a := range actions {
		for _, b := range r.bindings {
			if b.Command.Action != a {
				continue
			}
			if a == ActionSwitchToIndex {
				out = append(out, key.NewBinding(key.WithKeys(b.Keys()...), key.WithHelp(fmt.Sprintf("alt+1…%d", Tabs), "go to tab")))
			} else {
				out = append(out, b.Binding)
			}
			break
		}
	}
	return out
}
