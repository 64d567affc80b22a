// Package todo is a small todo list used to exercise the runtime end to end.
package todo

import "strings"

// Visibility filters the list.
type Visibility string

const (
	All        Visibility = "all"
	Complete   Visibility = "complete"
	Incomplete Visibility = "incomplete"
)

// Visibilities lists every filter in display order.
var Visibilities = []Visibility{All, Complete, Incomplete}

// Todo is one list entry.
type Todo struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// State is the whole application state.
type State struct {
	NextID     int        `json:"next_id"`
	Todos      []Todo     `json:"todos"`
	NewInput   string     `json:"new_input"`
	Visibility Visibility `json:"visibility"`
	Cursor     int        `json:"cursor"`
}

// Init is the state of a fresh install.
var Init = State{Visibility: All}

// NewTodo appends the trimmed input as a todo and clears the input.
func NewTodo(s State) State {
	text := strings.TrimSpace(s.NewInput)
	if text == "" {
		return s
	}
	s.Todos = append(append([]Todo(nil), s.Todos...), Todo{ID: s.NextID, Text: text})
	s.NextID++
	s.NewInput = ""
	return s
}

// RemoveTodo deletes the todo at i.
func RemoveTodo(i int) func([]Todo) []Todo {
	return func(ts []Todo) []Todo {
		if i < 0 || i >= len(ts) {
			return ts
		}
		out := make([]Todo, 0, len(ts)-1)
		out = append(out, ts[:i]...)
		return append(out, ts[i+1:]...)
	}
}

// SetAll marks every todo completed or not.
func SetAll(completed bool) func([]Todo) []Todo {
	return func(ts []Todo) []Todo {
		out := make([]Todo, len(ts))
		for i, t := range ts {
			t.Completed = completed
			out[i] = t
		}
		return out
	}
}

// ClearCompleted drops completed todos.
func ClearCompleted(ts []Todo) []Todo {
	var out []Todo
	for _, t := range ts {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// AllCompleted reports whether every todo is completed.
func AllCompleted(ts []Todo) bool {
	for _, t := range ts {
		if !t.Completed {
			return false
		}
	}
	return true
}

// Remaining counts incomplete todos.
func Remaining(ts []Todo) int {
	n := 0
	for _, t := range ts {
		if !t.Completed {
			n++
		}
	}
	return n
}

// Visible reports whether t shows under v.
func Visible(t Todo, v Visibility) bool {
	switch v {
	case Complete:
		return t.Completed
	case Incomplete:
		return !t.Completed
	}
	return true
}

// VisibleIndexes returns the positions of the todos shown under v.
func VisibleIndexes(ts []Todo, v Visibility) []int {
	var idx []int
	for i, t := range ts {
		if Visible(t, v) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Next returns the filter after v, wrapping around.
func Next(v Visibility) Visibility {
	for i, x := range Visibilities {
		if x == v {
			return Visibilities[(i+1)%len(Visibilities)]
		}
	}
	return All
}
