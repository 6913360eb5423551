package navigation

import (
	"github.com/solatis/waypoint/internal/rules"
	"github.com/solatis/waypoint/internal/types"
)

// State is a step of the navigation state machine.
type State int

const (
	StateResolving State = iota
	StateImplicitFallback
	StateApplying
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateImplicitFallback:
		return "implicit_fallback"
	case StateApplying:
		return "applying"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Kind is the transition performed.
type Kind int

const (
	// KindNone means no transition; the client stays on the current page.
	KindNone Kind = iota
	// KindForward replaced the page in-process.
	KindForward
	// KindRedirect told the transport to redirect the client.
	KindRedirect
	// KindFullPageReplace is a forward that a partial-update client must
	// render as a whole new page instead of patching a fragment.
	KindFullPageReplace
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindForward:
		return "forward"
	case KindRedirect:
		return "redirect"
	case KindFullPageReplace:
		return "full_page_replace"
	default:
		return "unknown"
	}
}

// Request is the input of one navigation.
type Request struct {
	ActionRef string // "" = no action
	Outcome   string // "" = absent outcome
}

// Result describes what a navigation did.
type Result struct {
	Kind          Kind
	States        []State // states visited, in order
	From          string  // page id navigated from; derived from the path when recovering
	Target        types.Target
	FlowReference string
	URL           string              // redirect location, set for KindRedirect
	Case          *rules.CompiledCase // matched case, nil for implicit navigation
	Implicit      bool
	Recovered     bool
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
}
