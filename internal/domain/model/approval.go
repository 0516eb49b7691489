package model

import "time"

// ReviewState is the GitHub review state.
type ReviewState string

const (
	ReviewApproved         ReviewState = "APPROVED"
	ReviewChangesRequested ReviewState = "CHANGES_REQUESTED"
	ReviewCommented        ReviewState = "COMMENTED"
	ReviewDismissed        ReviewState = "DISMISSED"
	ReviewPending          ReviewState = "PENDING"
)

// Review is a single pull request review event.
type Review struct {
	ID            int64
	ReviewerID    int64
	ReviewerLogin string
	State         ReviewState
	SubmittedAt   time.Time
}

// Role is an allow-list role.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleTeam        Role = "team"
	RoleContributor Role = "contributor"
	RoleSupport     Role = "support"
)

// GitHubIdentity identifies a GitHub account.
type GitHubIdentity struct {
	Username string `json:"username"`
	ID       int64  `json:"id"`
}

// AllowedUser is an entry of the reviewer allow-list.
type AllowedUser struct {
	GitHub GitHubIdentity `json:"github"`
	Role   Role           `json:"role"`
}

// Authorized reports whether the user may approve pull requests.
func (u AllowedUser) Authorized() bool {
	return u.Role == RoleAdmin || u.Role == RoleTeam
}

// ApprovalResult is the verdict for a pull request at validation time.
type ApprovalResult struct {
	Approved   bool
	HasReviews bool
	Approvers  []string
	History    []Review
	Summary    string
	Details    string
}

// PullRequestRef locates a pull request head inside an installation.
type PullRequestRef struct {
	InstallationID int64
	Owner          string
	Repo           string
	Number         int
	HeadSHA        string
}

// Check run statuses and conclusions used by the approval gate.
const (
	CheckStatusInProgress = "in_progress"
	CheckStatusCompleted  = "completed"

	CheckConclusionSuccess        = "success"
	CheckConclusionActionRequired = "action_required"
)

// CheckRun is the external check run owned by the gate.
type CheckRun struct {
	ID         int64
	Name       string
	HeadSHA    string
	Status     string
	Conclusion string
}

// CheckOutput is the rendered body of a check run.
type CheckOutput struct {
	Title   string
	Summary string
	Text    string
}

// CheckAction records what reconciliation did.
type CheckAction string

const (
	CheckActionNone      CheckAction = "none"
	CheckActionCreated   CheckAction = "created"
	CheckActionSucceeded CheckAction = "succeeded"
	CheckActionRevoked   CheckAction = "revoked"
)

// GateEvent is a GitHub webhook reduced to what the approval gate acts on.
type GateEvent struct {
	Name           string
	Action         string
	InstallationID int64
	Owner          string
	Repo           string
	// PullRequest is nil for check suites without associated pull requests.
	PullRequest  *PullRequestHead
	CheckRunName string
}

// PullRequestHead identifies a pull request and the commit the check is attached to.
type PullRequestHead struct {
	Number  int
	HeadSHA string
}

// Ref builds the pull request reference for the event.
func (e *GateEvent) Ref() PullRequestRef {
	ref := PullRequestRef{InstallationID: e.InstallationID, Owner: e.Owner, Repo: e.Repo}
	if e.PullRequest != nil {
		ref.Number = e.PullRequest.Number
		ref.HeadSHA = e.PullRequest.HeadSHA
	}
	return ref
}
