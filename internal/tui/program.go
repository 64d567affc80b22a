package tui

import (
	"context"
	"errors"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNotRunning is returned by Do once the program has exited.
var ErrNotRunning = errors.New("tui: program not running")

type postMsg struct{ fn func() }

type model struct {
	screen *Screen
	quit   []string
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case postMsg:
		msg.fn()
	case tea.WindowSizeMsg:
		m.screen.SetWidth(msg.Width)
	case tea.KeyMsg:
		return m, m.key(msg)
	}
	return m, nil
}

func (m model) key(msg tea.KeyMsg) tea.Cmd {
	for _, q := range m.quit {
		if msg.String() == q {
			return tea.Quit
		}
	}
	in := m.screen.Frame().Input
	if in != nil && in.OnChange != nil {
		switch msg.Type {
		case tea.KeyRunes:
			in.OnChange(in.Value + string(msg.Runes))
			return nil
		case tea.KeySpace:
			in.OnChange(in.Value + " ")
			return nil
		}
	}
	if b, ok := m.screen.Lookup(msg); ok {
		if b.Action != nil {
			b.Action()
		}
		return nil
	}
	if in == nil {
		return nil
	}
	switch msg.Type {
	case tea.KeyBackspace:
		if r := []rune(in.Value); len(r) > 0 && in.OnChange != nil {
			in.OnChange(string(r[:len(r)-1]))
		}
	case tea.KeyEnter:
		if in.OnSubmit != nil {
			in.OnSubmit(in.Value)
		}
	}
	return nil
}

func (m model) View() string { return m.screen.String() }

// Program runs a Screen as a bubbletea program. Update is the only goroutine
// that touches application state; other goroutines hand work to it with
// Post and Do.
type Program struct {
	prog *tea.Program
	done chan struct{}
}

// NewProgram wraps screen. Key presses go to the focused input first, then to
// the frame's bindings; ctrl+c always quits.
func NewProgram(screen *Screen, opts ...tea.ProgramOption) *Program {
	m := model{screen: screen, quit: []string{"ctrl+c"}}
	return &Program{prog: tea.NewProgram(m, opts...), done: make(chan struct{})}
}

// Run blocks until the program exits.
func (p *Program) Run() error {
	defer close(p.done)
	_, err := p.prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Post queues fn to run on the event loop. It blocks until the loop accepts
// the message and is a no-op after the program exits.
func (p *Program) Post(fn func()) {
	select {
	case <-p.done:
	default:
		p.prog.Send(postMsg{fn: fn})
	}
}

// Do runs fn on the event loop and waits for it to finish. If ctx ends or the
// program exits before the loop picks fn up, fn never runs.
func (p *Program) Do(ctx context.Context, fn func()) error {
	var claimed atomic.Bool
	finished := make(chan struct{})
	go p.Post(func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		fn()
		close(finished)
	})
	select {
	case <-finished:
		return nil
	case <-p.done:
		if claimed.CompareAndSwap(false, true) {
			return ErrNotRunning
		}
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
	}
	// fn already started on the loop
	select {
	case <-finished:
		return nil
	case <-p.done:
		return ErrNotRunning
	}
}

// Quit asks the program to exit.
func (p *Program) Quit() { p.prog.Quit() }

// Done is closed once Run returns.
func (p *Program) Done() <-chan struct{} { return p.done }
