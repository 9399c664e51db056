// internal/matching/states.go
// Pure relationship state machine. No I/O, no mutation.

package matching

// SideState is one user's recorded evaluation inside a relationship.
type SideState string

const (
	SideWait SideState = "wait"
	SideLike SideState = "like"
	SidePass SideState = "pass"
)

// Status is the derived joint state of a relationship.
type Status string

const (
	StatusWait        Status = "wait"
	StatusEstablished Status = "established"
	StatusRefused     Status = "refused"
)

// Transition maps the acting side's new evaluation and the counterpart's
// currently recorded state to the new joint status:
//
//	actor \ other | wait | like    | pass
//	like          | wait | establ. | refused
//	pass          | wait | refused | refused
//
// The evaluation must be like or pass; wait is not a valid input. Guard
// invariants (one evaluation per side while the joint status is wait, no
// evaluation once it left wait) are enforced by the caller.
func Transition(evaluation, other SideState) Status {
	switch other {
	case SideLike:
		if evaluation == SideLike {
			return StatusEstablished
		}
		return StatusRefused
	case SidePass:
		return StatusRefused
	default:
		return StatusWait
	}
}
