package models

// Drift signals
const (
	SignalTimestamp = "timestamp"
	SignalChangeSet = "change_set"
)

// Drift rules
const (
	RuleCurrentStateUpdated     = "current_state_updated"
	RuleLinkedDocRequiresMarker = "linked_doc_requires_marker"
	RuleRepoContract            = "repo_contract"
)

// DriftFailure is one violated drift rule.
type DriftFailure struct {
	Rule    string   `json:"rule"`
	Message string   `json:"message"`
	Paths   []string `json:"paths,omitempty"`
}

// PathEvidence records which signals flagged a changed path.
type PathEvidence struct {
	Path    string   `json:"path"`
	Signals []string `json:"signals"`
}

// DriftEvidence is the result of a drift check.
// It must be identical across runs on an unmodified repository.
type DriftEvidence struct {
	OK                     bool           `json:"ok"`
	RepoRoot               string         `json:"repo_root"`
	ChangedPaths           []string       `json:"changed_paths"`
	DocFreshnessMarkerPath string         `json:"doc_freshness_marker_path"`
	MarkerIsStale          bool           `json:"marker_is_stale"`
	MarkerInChangeSet      bool           `json:"marker_in_change_set"`
	ChangeSetAvailable     bool           `json:"change_set_available"`
	Signals                []string       `json:"signals"`
	Evidence               []PathEvidence `json:"evidence"`
	Reasoning              []string       `json:"reasoning"`
	Failures               []DriftFailure `json:"failures"`
}
