package post

import "fmt"

type Status string

const (
	StatusPending Status = "pending"
	StatusPosting Status = "posting"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPosting, StatusPosted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

func (s Status) Terminal() bool {
	return s == StatusPosted || s == StatusFailed
}

// Actor is whoever asks for a status write.
type Actor string

const (
	ActorClient    Actor = "client"
	ActorExtension Actor = "extension"
	ActorSweeper   Actor = "sweeper"
)

// Sources lists the statuses a post may be in for the actor to move it to
// `to`. An empty result means the actor may never write that status.
func Sources(actor Actor, to Status) []Status {
	switch actor {
	case ActorClient:
		// retry is the only status write a client performs
		if to == StatusPending {
			return []Status{StatusFailed}
		}
	case ActorExtension:
		switch to {
		case StatusPosting:
			return []Status{StatusPending}
		case StatusPosted, StatusFailed:
			return []Status{StatusPending, StatusPosting}
		}
	case ActorSweeper:
		if to == StatusPosted || to == StatusFailed {
			return []Status{StatusPending, StatusPosting}
		}
	}
	return nil
}

func CanTransition(actor Actor, from, to Status) bool {
	for _, s := range Sources(actor, to) {
		if s == from {
			return true
		}
	}
	return false
}

// Decision is the outcome of comparing a requested status with the current one.
type Decision int

const (
	DecisionApply Decision = iota
	DecisionNoop
)

// Decide tells whether actor's request to set `to` applies, is a repeat of
// what is already stored, or is not permitted.
func Decide(actor Actor, from, to Status) (Decision, error) {
	if CanTransition(actor, from, to) {
		return DecisionApply, nil
	}
	if from == to && actor != ActorClient {
		return DecisionNoop, nil
	}
	if len(Sources(actor, to)) == 0 {
		return 0, fmt.Errorf("%w: %s may not set status %s", ErrForbidden, actor, to)
	}
	return 0, fmt.Errorf("%w: cannot move post from %s to %s", ErrPrecondition, from, to)
}
