package todo

import (
	"fmt"

	"github.com/jask/tealens/internal/store"
	"github.com/jask/tealens/internal/tui"
	"github.com/jask/tealens/internal/view"
)

var (
	todosLens = store.Lens[State, []Todo]{
		Get: func(s State) []Todo { return s.Todos },
		Set: func(s State, ts []Todo) State { s.Todos = ts; return s },
	}
	newInputLens = store.Lens[State, string]{
		Get: func(s State) string { return s.NewInput },
		Set: func(s State, v string) State { s.NewInput = v; return s },
	}
	cursorLens = store.Lens[State, int]{
		Get: func(s State) int { return s.Cursor },
		Set: func(s State, c int) State { s.Cursor = c; return s },
	}
	// VisibilityLens selects the list filter, which is mirrored into the route.
	VisibilityLens = store.Lens[State, Visibility]{
		Get: func(s State) Visibility { return s.Visibility },
		Set: func(s State, v Visibility) State { s.Visibility = v; return s },
	}
)

var keys = struct {
	up, down, toggle, remove, toggleAll, clear, filter key
}{
	up:        key{[]string{"up"}, "↑", "up"},
	down:      key{[]string{"down"}, "↓", "down"},
	toggle:    key{[]string{"ctrl+t"}, "ctrl+t", "toggle"},
	remove:    key{[]string{"ctrl+d"}, "ctrl+d", "delete"},
	toggleAll: key{[]string{"ctrl+a"}, "ctrl+a", "toggle all"},
	clear:     key{[]string{"ctrl+x"}, "ctrl+x", "clear completed"},
	filter:    key{[]string{"tab"}, "tab", "filter"},
}

type key struct {
	keys       []string
	help, desc string
}

func (k key) on(n view.Node, action func()) view.Node {
	return n.On(tui.Help(k.keys, k.help, k.desc), action)
}

// View renders the todo list.
func View(st *store.Store[State]) view.Node {
	s := st.Get()
	input := store.Zoom(st, newInputLens)

	header := view.El("header",
		view.Text("todos").Class("title"),
		view.Node{Tag: "input", Input: &view.Input{
			Value:       s.NewInput,
			Placeholder: "What needs to be done?",
			OnChange:    input.Set,
			OnSubmit:    func(string) { st.Modify(NewTodo) },
		}},
	)
	children := []view.Node{header}
	if len(s.Todos) > 0 {
		children = append(children, list(st, s))
	}
	children = append(children, footer(st, s))
	return view.El("app", children...).Class("box")
}

func checkbox(v bool) string {
	if v {
		return "[x]"
	}
	return "[ ]"
}

func list(st *store.Store[State], s State) view.Node {
	todos := store.Zoom(st, todosLens)
	cursor := store.Zoom(st, cursorLens)
	all := AllCompleted(s.Todos)

	toggleAll := view.El("row", view.Text(checkbox(all)), view.Text("toggle all")).Class("muted")
	toggleAll = keys.toggleAll.on(toggleAll, func() { todos.Modify(SetAll(!all)) })

	visible := VisibleIndexes(s.Todos, s.Visibility)
	sel := min(max(s.Cursor, 0), max(len(visible)-1, 0))
	rows := make([]view.Node, 0, len(visible))
	for j, i := range visible {
		t := s.Todos[i]
		marker := " "
		if j == sel {
			marker = "›"
		}
		row := view.El("row", view.Text(marker), view.Text(checkbox(t.Completed)), view.Text(t.Text))
		if t.Completed {
			row = row.Class("done")
		}
		if j == sel {
			row = row.Class("selected")
		}
		rows = append(rows, row)
	}
	ul := view.El("list", rows...)
	if len(visible) > 0 {
		i := visible[sel]
		item := store.Zoom(todos, store.Index[Todo](i))
		ul = keys.up.on(ul, func() { cursor.Set(max(sel-1, 0)) })
		ul = keys.down.on(ul, func() { cursor.Set(min(sel+1, len(visible)-1)) })
		ul = keys.toggle.on(ul, func() {
			item.Modify(func(t Todo) Todo { t.Completed = !t.Completed; return t })
		})
		ul = keys.remove.on(ul, func() { todos.Modify(RemoveTodo(i)) })
	}
	return view.El("main", toggleAll, ul)
}

func footer(st *store.Store[State], s State) view.Node {
	vis := store.Zoom(st, VisibilityLens)
	left := Remaining(s.Todos)
	noun := "items"
	if left == 1 {
		noun = "item"
	}
	filters := make([]view.Node, 0, len(Visibilities))
	for _, v := range Visibilities {
		n := view.Text(string(v))
		if v == s.Visibility {
			n = n.Class("active")
		} else {
			n = n.Class("muted")
		}
		filters = append(filters, n)
	}
	row := view.El("row", append([]view.Node{view.Text(fmt.Sprintf("%d %s left", left, noun))}, filters...)...)
	row = keys.filter.on(row, func() { vis.Modify(Next) })
	if left < len(s.Todos) {
		row = keys.clear.on(row, func() { store.Zoom(st, todosLens).Modify(ClearCompleted) })
	}
	return row
}
