// Package review holds the interactive review state: the aggregated
// message list, the focus cursor and the per-message delete marks.
package review

import (
	"github.com/nhle/fetchheaders/internal/model"
)

// NoFocus is the cursor value of an empty list.
const NoFocus = -1

// Phase is the lifecycle phase of a review.
type Phase int

const (
	Browsing Phase = iota
	Terminated
)

// Outcome is how a terminated review ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCommit
	OutcomeAbort
)

// Options controls how lines are formatted.
type Options struct {
	ShowFlags bool
}

// Section is one account's block in the display.
type Section struct {
	Account string
	Counts  *model.Counts
	Failed  bool
	Err     error

	// Start and End delimit the section's records in the flat list.
	Start, End int
}

// Len returns the number of records in the section.
func (s Section) Len() int { return s.End - s.Start }

// State is the review state machine. It is used from a single goroutine.
type State struct {
	opts      Options
	sections  []Section
	records   []*model.MessageRecord
	focus     int
	phase     Phase
	outcome   Outcome
	deletions map[string][]string
}

// New aggregates results, in the given order, into a browsable state.
// Marks are always cleared.
func New(results []model.AccountResult, opts Options) *State {
	s := &State{opts: opts, focus: NoFocus}

	for _, r := range results {
		sec := Section{
			Account: r.Account,
			Counts:  r.Counts,
			Failed:  r.Failed,
			Err:     r.Err,
			Start:   len(s.records),
		}
		if !r.Failed {
			for i := range r.Messages {
				m := r.Messages[i]
				m.Account = r.Account
				m.Marked = false
				s.records = append(s.records, &m)
			}
		}
		sec.End = len(s.records)
		s.sections = append(s.sections, sec)
	}

	if len(s.records) > 0 {
		s.focus = 0
	}
	return s
}

// Total returns the number of displayed messages.
func (s *State) Total() int { return len(s.records) }

// Focus returns the focused index, or NoFocus.
func (s *State) Focus() int { return s.focus }

// Phase returns the current phase.
func (s *State) Phase() Phase { return s.phase }

// Outcome returns how the review ended.
func (s *State) Outcome() Outcome { return s.outcome }

// Sections returns the account sections in display order.
func (s *State) Sections() []Section { return s.sections }

// Record returns the message at index i.
func (s *State) Record(i int) *model.MessageRecord { return s.records[i] }

// Line returns the formatted columns of the message at index i.
func (s *State) Line(i int) Line {
	return FormatLine(s.records[i], s.opts.ShowFlags)
}

// Style returns the style of the message at index i.
func (s *State) Style(i int) LineStyle {
	m := s.records[i]
	return StyleFor(i == s.focus, m.Marked, m.Seen)
}

func (s *State) active() bool {
	return s.phase == Browsing && len(s.records) > 0
}

// FocusDown moves the cursor down, wrapping to the top. It returns the
// previous and current indices so the caller can redraw just those lines.
func (s *State) FocusDown() (prev, cur int) {
	return s.move(1)
}

// FocusUp moves the cursor up, wrapping to the bottom.
func (s *State) FocusUp() (prev, cur int) {
	return s.move(-1)
}

func (s *State) move(delta int) (int, int) {
	prev := s.focus
	if !s.active() {
		return prev, prev
	}
	n := len(s.records)
	s.focus = ((s.focus+delta)%n + n) % n
	return prev, s.focus
}

// ToggleMark flips the delete mark of the focused message and returns
// its index, or NoFocus when nothing changed.
func (s *State) ToggleMark() int {
	if !s.active() {
		return NoFocus
	}
	m := s.records[s.focus]
	m.Marked = !m.Marked
	return s.focus
}

// Mark sets the delete mark of the focused message.
func (s *State) Mark() int {
	if !s.active() {
		return NoFocus
	}
	s.records[s.focus].Marked = true
	return s.focus
}

// Unmark clears the delete mark of the focused message.
func (s *State) Unmark() int {
	if !s.active() {
		return NoFocus
	}
	s.records[s.focus].Marked = false
	return s.focus
}

// Marked returns the number of marked messages.
func (s *State) Marked() int {
	n := 0
	for _, m := range s.records {
		if m.Marked {
			n++
		}
	}
	return n
}

// Commit ends the review and returns the marked UIDs grouped by account,
// in display order. Accounts without marks are absent.
func (s *State) Commit() map[string][]string {
	if s.phase == Terminated {
		return s.deletions
	}
	s.phase = Terminated
	s.outcome = OutcomeCommit

	groups := make(map[string][]string)
	for _, m := range s.records {
		if m.Marked {
			groups[m.Account] = append(groups[m.Account], m.UID)
		}
	}
	s.deletions = groups
	return groups
}

// Abort ends the review and discards every mark.
func (s *State) Abort() {
	if s.phase == Terminated {
		return
	}
	s.phase = Terminated
	s.outcome = OutcomeAbort
	for _, m := range s.records {
		m.Marked = false
	}
	s.deletions = nil
}

// Deletions returns the commit mapping, or nil unless the review was
// committed.
func (s *State) Deletions() map[string][]string {
	if s.outcome != OutcomeCommit {
		return nil
	}
	return s.deletions
}
