// Package tui hosts view trees in a bubbletea terminal program.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/tealens/internal/view"
)

// ErrDuplicateKey is returned by Patch when two bindings in one tree claim
// the same key.
var ErrDuplicateKey = errors.New("tui: duplicate key binding")

// Frame is a rendered view tree.
type Frame struct {
	Body  string
	Keys  []view.Binding
	Input *view.Input
}

// Screen renders view trees into frames. It implements
// redraw.Renderer[view.Node]. A tree that fails to render leaves the
// previous frame in place.
type Screen struct {
	theme   Theme
	width   int
	frame   Frame
	patches int
	status  string
}

// NewScreen returns an empty screen.
func NewScreen(theme Theme) *Screen {
	return &Screen{theme: theme}
}

// Patch replaces the current frame with the rendering of tree.
func (s *Screen) Patch(tree view.Node) error {
	f, err := s.render(tree)
	if err != nil {
		return err
	}
	s.frame = f
	s.patches++
	return nil
}

// Frame returns the current frame.
func (s *Screen) Frame() Frame { return s.frame }

// Patches counts successful patches.
func (s *Screen) Patches() int { return s.patches }

// SetWidth sets the terminal width used for the footer.
func (s *Screen) SetWidth(w int) { s.width = w }

// SetStatus shows msg above the footer until it is cleared with "".
func (s *Screen) SetStatus(msg string) { s.status = msg }

// Lookup returns the binding for a key press.
func (s *Screen) Lookup(msg fmt.Stringer) (view.Binding, bool) {
	for _, b := range s.frame.Keys {
		for _, k := range b.Key.Keys() {
			if k == msg.String() && b.Key.Enabled() {
				return b, true
			}
		}
	}
	return view.Binding{}, false
}

// String renders the current frame with status line and key help.
func (s *Screen) String() string {
	parts := []string{s.frame.Body}
	if s.status != "" {
		parts = append(parts, s.theme.Status.Render(s.status))
	}
	if footer := s.footer(); footer != "" {
		parts = append(parts, footer)
	}
	return strings.Join(parts, "\n")
}

func (s *Screen) footer() string {
	space := s.theme.Help.Render(" ")
	sep := s.theme.Help.Render("  ")
	var items []string
	for _, b := range s.frame.Keys {
		h := b.Key.Help()
		if h.Key == "" && h.Desc == "" {
			continue
		}
		items = append(items, s.theme.HelpKey.Render(h.Key)+space+s.theme.Help.Render(h.Desc))
	}
	if len(items) == 0 {
		return ""
	}
	content := strings.Join(items, sep)
	if s.width == 0 {
		return s.theme.Footer.Render(content)
	}
	return s.theme.Footer.Width(s.width).Render(content)
}

type renderer struct {
	theme Theme
	frame Frame
	taken map[string]bool
}

func (s *Screen) render(tree view.Node) (Frame, error) {
	r := &renderer{theme: s.theme, taken: map[string]bool{}}
	body, err := r.node(tree)
	if err != nil {
		return Frame{}, err
	}
	r.frame.Body = body
	return r.frame, nil
}

func (r *renderer) node(n view.Node) (string, error) {
	for _, b := range n.Keys {
		for _, k := range b.Key.Keys() {
			if r.taken[k] {
				return "", fmt.Errorf("%w: %q", ErrDuplicateKey, k)
			}
			r.taken[k] = true
		}
		r.frame.Keys = append(r.frame.Keys, b)
	}
	style := r.theme.Style(n.Classes)

	if n.Input != nil {
		if r.frame.Input == nil {
			r.frame.Input = n.Input
		}
		text := n.Input.Value
		if text == "" {
			text = r.theme.Style([]string{"muted"}).Render(n.Input.Placeholder)
		}
		return style.Render(r.theme.Input.Render("> " + text)), nil
	}

	children := make([]string, 0, len(n.Children)+1)
	if n.Text != "" {
		children = append(children, n.Text)
	}
	for _, c := range n.Children {
		out, err := r.node(c)
		if err != nil {
			return "", err
		}
		children = append(children, out)
	}
	switch n.Tag {
	case "row":
		return style.Render(strings.Join(children, " ")), nil
	default:
		return style.Render(lipgloss.JoinVertical(lipgloss.Left, children...)), nil
	}
}

// Help builds a key binding with help text.
func Help(keys []string, helpKey, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}
