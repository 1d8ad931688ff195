package autorebase

import "fmt"

// ActionType identifies the kind of an Action.
type ActionType string

const (
	ActionTypeNop               ActionType = "nop"
	ActionTypeRebase            ActionType = "rebase"
	ActionTypeMerge             ActionType = "merge"
	ActionTypeAbort             ActionType = "abort"
	ActionTypeDenyOneTimeRebase ActionType = "deny-one-time-rebase"
	ActionTypeFailed            ActionType = "failed"
)

// Action is the outcome of processing one event.
// The set of implementations is closed, they are: Nop, Rebase, Merge, Abort,
// DenyOneTimeRebase and Failed.
type Action interface {
	Type() ActionType
	String() string
	isAction()
}

// Nop is returned when an event did not cause any change.
type Nop struct{}

// Rebase is returned when the pull request was rebased.
type Rebase struct {
	PullRequestNumber int
}

// Merge is returned when the pull request was merged and its branch deleted.
type Merge struct {
	PullRequestNumber int
}

// Abort is returned when the pull request was not rebased because another
// process holds its lock.
type Abort struct {
	PullRequestNumber int
}

// DenyOneTimeRebase is returned when a rebase command was submitted by a user
// without the required permission.
type DenyOneTimeRebase struct {
	PullRequestNumber int
}

// Failed wraps an error returned while processing an event.
// It is never returned by the Engine, callers create it from the returned
// error.
type Failed struct {
	Err error
}

func (Nop) Type() ActionType               { return ActionTypeNop }
func (Rebase) Type() ActionType            { return ActionTypeRebase }
func (Merge) Type() ActionType             { return ActionTypeMerge }
func (Abort) Type() ActionType             { return ActionTypeAbort }
func (DenyOneTimeRebase) Type() ActionType { return ActionTypeDenyOneTimeRebase }
func (Failed) Type() ActionType            { return ActionTypeFailed }

func (Nop) isAction()               {}
func (Rebase) isAction()            {}
func (Merge) isAction()             {}
func (Abort) isAction()             {}
func (DenyOneTimeRebase) isAction() {}
func (Failed) isAction()            {}

func (Nop) String() string { return string(ActionTypeNop) }

func (a Rebase) String() string {
	return fmt.Sprintf("%s #%d", ActionTypeRebase, a.PullRequestNumber)
}

func (a Merge) String() string {
	return fmt.Sprintf("%s #%d", ActionTypeMerge, a.PullRequestNumber)
}

func (a Abort) String() string {
	return fmt.Sprintf("%s #%d", ActionTypeAbort, a.PullRequestNumber)
}

func (a DenyOneTimeRebase) String() string {
	return fmt.Sprintf("%s #%d", ActionTypeDenyOneTimeRebase, a.PullRequestNumber)
}

func (a Failed) String() string {
	return fmt.Sprintf("%s: %s", ActionTypeFailed, a.Err)
}

// PullRequestNumberOf returns the pull request number an action refers to.
// For Nop and Failed it returns 0.
func PullRequestNumberOf(a Action) int {
	switch v := a.(type) {
	case Nop, Failed:
		return 0
	case Rebase:
		return v.PullRequestNumber
	case Merge:
		return v.PullRequestNumber
	case Abort:
		return v.PullRequestNumber
	case DenyOneTimeRebase:
		return v.PullRequestNumber
	default:
		panic(fmt.Sprintf("unsupported action type %T", a))
	}
}
