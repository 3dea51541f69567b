package preview

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/meshkit/internal/preview/controller"
)

// EventType classifies translated input events.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventAction
	EventMouseMove
	EventMouseDown
	EventMouseUp
)

// Event is a processed input event.
type Event struct {
	Type   EventType
	Action controller.Action
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
}

// actionFor maps a key to its controller action.
func actionFor(sym sdl.Keycode) (controller.Action, bool) {
	switch sym {
	case sdl.K_SPACE:
		return controller.ActionToggleAnimation, true
	case sdl.K_r:
		return controller.ActionNewPalette, true
	case sdl.K_BACKSPACE:
		return controller.ActionResetAnimation, true
	case sdl.K_g:
		return controller.ActionToggleGrabbers, true
	case sdl.K_EQUALS, sdl.K_KP_PLUS:
		return controller.ActionMoreDetail, true
	case sdl.K_MINUS, sdl.K_KP_MINUS:
		return controller.ActionLessDetail, true
	case sdl.K_s:
		return controller.ActionSave, true
	case sdl.K_e:
		return controller.ActionExport, true
	case sdl.K_p:
		return controller.ActionScreenshot, true
	case sdl.K_ESCAPE, sdl.K_q:
		return controller.ActionQuit, true
	default:
		return controller.ActionNone, false
	}
}

// Input polls SDL events.
type Input struct {
	events []Event
}

// NewInput creates an input handler.
func NewInput() *Input {
	return &Input{events: make([]Event, 0, 16)}
}

// Update polls pending SDL events. Returns true if the window should close.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				continue
			}
			if a, ok := actionFor(e.Keysym.Sym); ok {
				i.events = append(i.events, Event{Type: EventAction, Action: a})
				if a == controller.ActionQuit {
					return true
				}
			}

		case *sdl.MouseMotionEvent:
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
			})

		case *sdl.MouseButtonEvent:
			t := EventMouseUp
			if e.Type == sdl.MOUSEBUTTONDOWN {
				t = EventMouseDown
			}
			i.events = append(i.events, Event{
				Type:   t,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				Button: e.Button,
			})
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}
