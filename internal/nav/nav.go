// Package nav implements the stack-based menu navigation used by the
// interactive mode. Menus are plain data; answers come from an AnswerSource,
// so the same tree runs interactively or fully scripted.
package nav

import (
	"context"
	"fmt"

	"github.com/guras256/warp-dns-manager/internal/failure"
)

// MenuID names one menu in the tree.
type MenuID string

// ActionKind says what selecting an action does.
type ActionKind int

const (
	// Invoke runs the action's Do function and stays on the current menu.
	Invoke ActionKind = iota
	// Enter pushes the action's target menu onto the stack.
	Enter
	// Back pops the current menu off the stack.
	Back
	// Exit ends the navigation session entirely.
	Exit
)

// Action is one selectable entry in a menu.
type Action struct {
	ID    string
	Label string
	Kind  ActionKind
	// Menu is the target for Enter actions.
	Menu MenuID
	// Do runs for Invoke actions.
	Do func(ctx context.Context) error
}

// Frame is a rendered menu: its identity plus the actions currently offered.
// Menus are built lazily per visit, so labels can reflect live state.
type Frame struct {
	Menu    MenuID
	Title   string
	Actions []Action
}

// AnswerSource supplies the selection for each presented frame.
type AnswerSource interface {
	// Next returns the id of the action to select on the given frame.
	Next(f Frame) (string, error)
}

// Preset replays a fixed list of answers. Running out of answers while menus
// still ask for input is a configuration error, not a prompt: scripted runs
// must never block waiting for a human.
type Preset struct {
	answers []string
	pos     int
}

// NewPreset creates a scripted answer source.
func NewPreset(answers ...string) *Preset {
	return &Preset{answers: answers}
}

func (p *Preset) Next(f Frame) (string, error) {
	if p.pos >= len(p.answers) {
		return "", fmt.Errorf("%w: scripted answers exhausted at menu %s", failure.ErrInvalidConfig, f.Menu)
	}
	a := p.answers[p.pos]
	p.pos++
	return a, nil
}

// Engine walks a menu tree using an answer source. The stack always starts
// at root; Back at the root is a no-op rather than an exit, so a stray
// cancel never terminates the session.
type Engine struct {
	Menus   map[MenuID]func() Frame
	Answers AnswerSource

	stack []MenuID
}

// NewEngine creates an engine over the given menu constructors.
func NewEngine(menus map[MenuID]func() Frame, answers AnswerSource) *Engine {
	return &Engine{Menus: menus, Answers: answers}
}

// Depth returns the current stack depth.
func (e *Engine) Depth() int { return len(e.stack) }

// Current returns the menu on top of the stack, or "" when the stack is empty.
func (e *Engine) Current() MenuID {
	if len(e.stack) == 0 {
		return ""
	}
	return e.stack[len(e.stack)-1]
}

// Enter pushes a menu onto the stack.
func (e *Engine) Enter(id MenuID) error {
	if _, ok := e.Menus[id]; !ok {
		return fmt.Errorf("unknown menu %s", id)
	}
	e.stack = append(e.stack, id)
	return nil
}

// Cancel pops the current menu. At the root it does nothing.
func (e *Engine) Cancel() {
	if len(e.stack) > 1 {
		e.stack = e.stack[:len(e.stack)-1]
	}
}

// Select applies one action on the current frame.
func (e *Engine) Select(ctx context.Context, f Frame, id string) (done bool, err error) {
	for _, a := range f.Actions {
		if a.ID != id {
			continue
		}
		switch a.Kind {
		case Invoke:
			if a.Do == nil {
				return false, fmt.Errorf("action %s has no handler", a.ID)
			}
			return false, a.Do(ctx)
		case Enter:
			return false, e.Enter(a.Menu)
		case Back:
			e.Cancel()
			return false, nil
		case Exit:
			e.stack = e.stack[:0]
			return true, nil
		}
	}
	return false, fmt.Errorf("unknown action %q in menu %s", id, f.Menu)
}

// Run enters the root menu and loops: build the current frame, ask the
// answer source, apply the selection. Action errors are reported through
// onError and do not end the session; answer-source errors do.
func (e *Engine) Run(ctx context.Context, root MenuID, onError func(error)) error {
	if err := e.Enter(root); err != nil {
		return err
	}
	for len(e.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		build, ok := e.Menus[e.Current()]
		if !ok {
			return fmt.Errorf("menu %s not registered", e.Current())
		}
		frame := build()
		frame.Menu = e.Current()

		answer, err := e.Answers.Next(frame)
		if err != nil {
			return err
		}
		done, err := e.Select(ctx, frame, answer)
		if err != nil {
			if onError == nil {
				return err
			}
			onError(err)
		}
		if done {
			return nil
		}
	}
	return nil
}
