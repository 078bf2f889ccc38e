// Package shortcut maps keyboard chords to browser commands. Bindings are
// bubbles key bindings, so a terminal frontend can match key messages
// against them directly and render help from the same table.
package shortcut

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
)

// Action is a browser command reachable from the keyboard.
type Action int

const (
	ActionNone Action = iota
	ActionAddTab
	ActionCloseTab
	ActionFocusAddressBar
	ActionReload
	ActionStop
	ActionGoBack
	ActionGoForward
	ActionNextTab
	ActionPreviousTab
	ActionSwitchToIndex
	ActionZoomIn
	ActionZoomOut
	ActionResetZoom
	ActionCopyURL
	ActionSubmit
)

var actionNames = map[Action]string{
	ActionNone:            "none",
	ActionAddTab:          "add_tab",
	ActionCloseTab:        "close_tab",
	ActionFocusAddressBar: "focus_address_bar",
	ActionReload:          "reload",
	ActionStop:            "stop",
	ActionGoBack:          "go_back",
	ActionGoForward:       "go_forward",
	ActionNextTab:         "next_tab",
	ActionPreviousTab:     "previous_tab",
	ActionSwitchToIndex:   "switch_to_index",
	ActionZoomIn:          "zoom_in",
	ActionZoomOut:         "zoom_out",
	ActionResetZoom:       "reset_zoom",
	ActionCopyURL:         "copy_url",
	ActionSubmit:          "submit",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Command is a resolved Action. Index is only meaningful for
// ActionSwitchToIndex and is zero-based.
type Command struct {
	Action Action
	Index  int
}

// Binding ties a key binding to the command it triggers.
type Binding struct {
	key.Binding
	Command Command
}

// Chord is a key chord identifier such as "ctrl+t" or "alt+]". It satisfies
// fmt.Stringer so it can be resolved like a terminal key message.
type Chord string

func (c Chord) String() string { return string(c) }

// Tabs is the number of positions reachable with a direct-selection chord.
const Tabs = 9

func bind(cmd Command, help, desc string, keys ...string) Binding {
	return Binding{
		Binding: key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc)),
		Command: cmd,
	}
}

// DefaultBindings returns the built-in chord table.
func DefaultBindings() []Binding {
	b := []Binding{
		bind(Command{Action: ActionAddTab}, "ctrl+t", "new tab", "ctrl+t"),
		bind(Command{Action: ActionCloseTab}, "ctrl+w", "close tab", "ctrl+w"),
		bind(Command{Action: ActionFocusAddressBar}, "ctrl+l", "address bar", "ctrl+l"),
		bind(Command{Action: ActionReload}, "ctrl+r", "reload", "ctrl+r"),
		bind(Command{Action: ActionStop}, "alt+.", "stop", "alt+."),
		bind(Command{Action: ActionGoBack}, "alt+←", "back", "alt+left"),
		bind(Command{Action: ActionGoForward}, "alt+→", "forward", "alt+right"),
		bind(Command{Action: ActionNextTab}, "alt+]", "next tab", "ctrl+pgdown", "alt+]"),
		bind(Command{Action: ActionPreviousTab}, "alt+[", "previous tab", "ctrl+pgup", "alt+["),
		bind(Command{Action: ActionZoomIn}, "alt+=", "zoom in", "alt+="),
		bind(Command{Action: ActionZoomOut}, "alt+-", "zoom out", "alt+-"),
		bind(Command{Action: ActionResetZoom}, "alt+0", "reset zoom", "alt+0"),
		bind(Command{Action: ActionCopyURL}, "alt+c", "copy url", "alt+c"),
		bind(Command{Action: ActionSubmit}, "enter", "go", "enter"),
	}
	for i := range Tabs {
		chord := fmt.Sprintf("alt+%d", i+1)
		b = append(b, bind(Command{Action: ActionSwitchToIndex, Index: i}, chord, fmt.Sprintf("tab %d", i+1), chord))
	}
	return b
}
