package rules

// The counter-play chain is a count of consecutive counters laid on a contested
// action. Depth 0 is the bare action. Each counter flips who must answer next and
// whether the action would currently go through.

// Responder returns the seat that must answer at the given chain depth: the
// defender on even depths, the attacker on odd depths.
func Responder(attacker, depth int) int {
	if depth%2 == 1 {
		return attacker
	}
	return Opponent(attacker)
}

// Blocked reports whether the action is cancelled at the given depth.
func Blocked(depth int) bool {
	return depth%2 == 1
}

// Outcome is how a contested action finished.
type Outcome string

const (
	OutcomePending  Outcome = "PENDING"
	OutcomeExecuted Outcome = "EXECUTED"
	OutcomeBlocked  Outcome = "BLOCKED"
)

// Settle decides the result of a final, non-counter answer at the given depth.
func Settle(depth int) Outcome {
	if Blocked(depth) {
		return OutcomeBlocked
	}
	return OutcomeExecuted
}
