package wishlist

type Outcome int

const (
	OutcomeNoSession Outcome = iota
	OutcomeNoWishlist
	OutcomeCounted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoSession:
		return "no_session"
	case OutcomeNoWishlist:
		return "no_wishlist"
	case OutcomeCounted:
		return "counted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one pass through the wishlist-then-count pipeline.
// Err is set only for OutcomeFailed.
type Result struct {
	Outcome Outcome
	Count   int64
	Err     error
}

// Value is the badge count: the counted value, or zero for every other outcome.
func (r Result) Value() int64 {
	if r.Outcome != OutcomeCounted {
		return 0
	}
	return r.Count
}
