package engine

import (
	"fmt"

	"github.com/effrun-dev/effrun/effect"
)

// frame is one installed handler. enclosing dispatch order is positional:
// the frame's index in the stack is its dynamic nesting depth.
type frame struct {
	effect  effect.ID
	handler *Handler
	owner   *execution
}

// FrameHandle identifies a pushed frame for later Pop and for taking
// stack snapshots relative to it.
type FrameHandle struct {
	f *frame
}

// Token captures a sequence of frame identities for later restoration by
// a resumed continuation. It records identities, not mutable state.
type Token struct {
	frames []*frame
}

// Depth returns the number of frames the token describes.
func (t Token) Depth() int { return len(t.frames) }

// Stack is the dynamically scoped stack of active handler frames for one
// logical thread of control. Push, Pop and FindNearest are synchronous
// and never suspend.
type Stack struct {
	frames []*frame
}

// Push appends a frame for h and returns its handle.
func (s *Stack) Push(h *Handler) FrameHandle {
	f := &frame{effect: h.effect, handler: h}
	s.frames = append(s.frames, f)
	return FrameHandle{f: f}
}

// Pop removes the frame identified by the handle. It fails with
// ErrFrameMismatch unless the frame is the topmost one; that catches
// mis-nested installation, such as a continuation resumed out of order.
func (s *Stack) Pop(h FrameHandle) error {
	if len(s.frames) == 0 {
		return fmt.Errorf("%w: pop on empty stack", ErrFrameMismatch)
	}
	if s.frames[len(s.frames)-1] != h.f {
		return fmt.Errorf("%w: frame for effect %q is not topmost", ErrFrameMismatch, h.f.effect)
	}
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// FindNearest scans from the most recently pushed frame toward the
// oldest and returns the first frame handling id. This is what makes
// handler scoping dynamic: the same operation resolves to whichever
// handler is nearest on the current execution path.
func (s *Stack) FindNearest(id effect.ID) (FrameHandle, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].effect == id {
			return FrameHandle{f: s.frames[i]}, true
		}
	}
	return FrameHandle{}, false
}

// Snapshot captures the current frame sequence.
func (s *Stack) Snapshot() Token {
	t := Token{frames: make([]*frame, len(s.frames))}
	copy(t.frames, s.frames)
	return t
}

// Below captures the frames strictly beneath the given frame. Used when
// dispatching to a handler: its own frame, and everything above it, is
// off the stack while its operation implementation runs.
func (s *Stack) Below(h FrameHandle) Token {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i] == h.f {
			t := Token{frames: make([]*frame, i)}
			copy(t.frames, s.frames[:i])
			return t
		}
	}
	return Token{}
}

// Restore replaces the active stack with the sequence the token
// describes. A resumed continuation restores its captured token for the
// scope of the resume call, so effects raised by the resumed remainder
// resolve to the handlers that were enclosing it at capture time.
func (s *Stack) Restore(t Token) {
	s.frames = make([]*frame, len(t.frames))
	copy(s.frames, t.frames)
}

// Depth returns the number of active frames.
func (s *Stack) Depth() int { return len(s.frames) }
