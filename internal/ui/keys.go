package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextField   key.Binding
	PrevField   key.Binding
	Send        key.Binding
	AnalyzeBulk key.Binding
	LoadFile    key.Binding
	Upload      key.Binding
	SwitchMode  key.Binding
	TeamView    key.Binding
	MemberView  key.Binding
	LastView    key.Binding
	AccumView   key.Binding
	Reset       key.Binding
	Copy        key.Binding
	Debug       key.Binding
	Dismiss     key.Binding
	Quit        key.Binding
	Confirm     key.Binding
	Decline     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextField:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Send:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		AnalyzeBulk: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "analyze")),
		LoadFile:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "load file")),
		Upload:      key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "upload file")),
		SwitchMode:  key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "switch mode")),
		TeamView:    key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "team stage")),
		MemberView:  key.NewBinding(key.WithKeys("f4"), key.WithHelp("f4", "member stage")),
		LastView:    key.NewBinding(key.WithKeys("f5"), key.WithHelp("f5", "last emotions")),
		AccumView:   key.NewBinding(key.WithKeys("f6"), key.WithHelp("f6", "accumulated")),
		Reset:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset team")),
		Copy:        key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy feedback")),
		Debug:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "debug")),
		Dismiss:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Confirm:     key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
		Decline:     key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no")),
	}
}

// modeHelp returns the bindings that apply in the current mode.
func (k keyMap) modeHelp(analysis bool) []key.Binding {
	if analysis {
		return []key.Binding{k.NextField, k.AnalyzeBulk, k.LoadFile, k.Upload, k.SwitchMode, k.Reset, k.Copy, k.Quit}
	}
	return []key.Binding{k.NextField, k.Send, k.SwitchMode, k.TeamView, k.MemberView, k.LastView, k.AccumView, k.Reset, k.Quit}
}
