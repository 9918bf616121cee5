package catalog

// Action identifies one catalog operation.
type Action int

// Known actions. ActionUnknown is the sentinel produced when a request
// cannot be mapped to an operation.
const (
	ActionUnknown Action = iota
	ActionCreateRepository
	ActionListRepositories
	ActionGetRepositoryInfo
	ActionCreateIssue
	ActionListIssues
	ActionCreateBranch
	ActionGetRepositoryStats
	ActionCreatePullRequest
)

// UnknownAction is the wire name of ActionUnknown.
const UnknownAction = "unknown"

var actionNames = [...]string{
	ActionUnknown:            UnknownAction,
	ActionCreateRepository:   "create_repository",
	ActionListRepositories:   "list_repositories",
	ActionGetRepositoryInfo:  "get_repository_info",
	ActionCreateIssue:        "create_issue",
	ActionListIssues:         "list_issues",
	ActionCreateBranch:       "create_branch",
	ActionGetRepositoryStats: "get_repository_stats",
	ActionCreatePullRequest:  "create_pull_request",
}

// String returns the wire name of the action.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return UnknownAction
	}

	return actionNames[a]
}

// ParseAction maps a wire name to its Action. Names outside the
// catalog map to ActionUnknown.
func ParseAction(name string) Action {
	for i, n := range actionNames {
		if i != int(ActionUnknown) && n == name {
			return Action(i)
		}
	}

	return ActionUnknown
}

// Actions returns every known action except ActionUnknown, in
// declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(actionNames)-1)

	for i := range actionNames {
		if Action(i) != ActionUnknown {
			out = append(out, Action(i))
		}
	}

	return out
}
