package interaction

import (
	"fmt"
	"math"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
)

// Kind names a synthesized interaction.
type Kind string

const (
	KindTap         Kind = "tap"
	KindLongPress   Kind = "longPress"
	KindSwipe       Kind = "swipe"
	KindTypeText    Kind = "typeText"
	KindRotate      Kind = "rotate"
	KindPressButton Kind = "pressButton"
)

// Device orientations accepted by rotate.
const (
	OrientationPortrait           = "portrait"
	OrientationPortraitUpsideDown = "portraitUpsideDown"
	OrientationLandscapeLeft      = "landscapeLeft"
	OrientationLandscapeRight     = "landscapeRight"
)

// Hardware buttons accepted by pressButton.
const (
	ButtonHome       = "home"
	ButtonVolumeUp   = "volumeUp"
	ButtonVolumeDown = "volumeDown"
	ButtonLock       = "lock"
)

// DefaultLongPressDuration is used when a long press has no duration.
const DefaultLongPressDuration = time.Second

// Point is a screen coordinate in points.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) &&
		p.X >= 0 && p.Y >= 0
}

// Action describes one interaction. Only the fields relevant to Kind are used.
type Action struct {
	Kind        Kind          `json:"kind" yaml:"kind"`
	At          Point         `json:"at,omitempty" yaml:"at,omitempty"` // tap, longPress, swipe start
	To          Point         `json:"to,omitempty" yaml:"to,omitempty"` // swipe end
	Duration    time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Text        string        `json:"text,omitempty" yaml:"text,omitempty"`
	Orientation string        `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Button      string        `json:"button,omitempty" yaml:"button,omitempty"`
}

// Tap returns a tap at (x, y).
func Tap(x, y float64) Action {
	return Action{Kind: KindTap, At: Point{X: x, Y: y}}
}

// LongPress returns a press at (x, y) held for d.
func LongPress(x, y float64, d time.Duration) Action {
	return Action{Kind: KindLongPress, At: Point{X: x, Y: y}, Duration: d}
}

// Swipe returns a swipe from one point to another over d (0 = daemon default).
func Swipe(from, to Point, d time.Duration) Action {
	return Action{Kind: KindSwipe, At: from, To: to, Duration: d}
}

// TypeText returns text entry into the focused element.
func TypeText(text string) Action {
	return Action{Kind: KindTypeText, Text: text}
}

// Rotate returns a device rotation.
func Rotate(orientation string) Action {
	return Action{Kind: KindRotate, Orientation: orientation}
}

// PressButton returns a hardware button press.
func PressButton(button string) Action {
	return Action{Kind: KindPressButton, Button: button}
}

// Validate rejects descriptors the daemon could never execute.
func (a Action) Validate() error {
	switch a.Kind {
	case KindTap:
		if !a.At.valid() {
			return invalid(a, "tap point must be finite and non-negative")
		}
	case KindLongPress:
		if !a.At.valid() {
			return invalid(a, "long press point must be finite and non-negative")
		}
		if a.Duration < 0 {
			return invalid(a, "long press duration must not be negative")
		}
	case KindSwipe:
		if !a.At.valid() || !a.To.valid() {
			return invalid(a, "swipe points must be finite and non-negative")
		}
		if a.At == a.To {
			return invalid(a, "swipe start and end are the same point")
		}
		if a.Duration < 0 {
			return invalid(a, "swipe duration must not be negative")
		}
	case KindTypeText:
		if a.Text == "" {
			return invalid(a, "text is required")
		}
	case KindRotate:
		switch a.Orientation {
		case OrientationPortrait, OrientationPortraitUpsideDown, OrientationLandscapeLeft, OrientationLandscapeRight:
		default:
			return invalid(a, fmt.Sprintf("unknown orientation %q", a.Orientation))
		}
	case KindPressButton:
		switch a.Button {
		case ButtonHome, ButtonVolumeUp, ButtonVolumeDown, ButtonLock:
		default:
			return invalid(a, fmt.Sprintf("unknown button %q", a.Button))
		}
	default:
		return invalid(a, fmt.Sprintf("unknown action kind %q", a.Kind))
	}
	return nil
}

func invalid(a Action, msg string) error {
	return core.ErrInvalidAction.WithMessage(msg).WithDetails(map[string]interface{}{"kind": string(a.Kind)})
}

// Params returns the action's own synthesis parameters. They take precedence
// over caller and daemon defaults.
func (a Action) Params() map[string]interface{} {
	p := make(map[string]interface{})
	switch a.Kind {
	case KindTap:
		p["x"], p["y"] = a.At.X, a.At.Y
	case KindLongPress:
		p["x"], p["y"] = a.At.X, a.At.Y
		d := a.Duration
		if d == 0 {
			d = DefaultLongPressDuration
		}
		p["duration"] = d.Seconds()
	case KindSwipe:
		p["fromX"], p["fromY"] = a.At.X, a.At.Y
		p["toX"], p["toY"] = a.To.X, a.To.Y
		if a.Duration > 0 {
			p["duration"] = a.Duration.Seconds()
		}
	case KindTypeText:
		p["text"] = a.Text
	case KindRotate:
		p["orientation"] = a.Orientation
	case KindPressButton:
		p["button"] = a.Button
	}
	return p
}

// Describe returns a short human-readable form for logs.
func (a Action) Describe() string {
	switch a.Kind {
	case KindTap:
		return fmt.Sprintf("tap (%.0f, %.0f)", a.At.X, a.At.Y)
	case KindLongPress:
		return fmt.Sprintf("longPress (%.0f, %.0f)", a.At.X, a.At.Y)
	case KindSwipe:
		return fmt.Sprintf("swipe (%.0f, %.0f) -> (%.0f, %.0f)", a.At.X, a.At.Y, a.To.X, a.To.Y)
	case KindTypeText:
		return fmt.Sprintf("typeText %q", a.Text)
	case KindRotate:
		return "rotate " + a.Orientation
	case KindPressButton:
		return "pressButton " + a.Button
	default:
		return string(a.Kind)
	}
}
