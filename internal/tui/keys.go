package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Tab       key.Binding
	Enter     key.Binding
	Add       key.Binding
	Edit      key.Binding
	Done      key.Binding
	Delete    key.Binding
	Duplicate key.Binding
	Project   key.Binding
	View      key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	Help      key.Binding
	Quit      key.Binding
	Escape    key.Binding
	Confirm   key.Binding
	Logout    key.Binding
	Refresh   key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "projects")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "tasks")),
	Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select/toggle")),
	Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
	Done:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "toggle done")),
	Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Duplicate: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "duplicate")),
	Project:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "new project")),
	View:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "next view")),
	PrevMonth: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous month")),
	NextMonth: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next month")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
	Refresh:   key.NewBinding(key.WithKeys("R", "r"), key.WithHelp("R", "refresh")),
}
