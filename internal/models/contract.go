package models

// Contract sources reported in ContractReport.Source.
const (
	ContractSourceDefault = "default"
	ContractSourceConfig  = "config"
)

// ContractSpec is the ordered, deduplicated set of files a repository must contain.
type ContractSpec struct {
	RequiredFiles []string // Repo-relative paths, forward slashes
	Authoritative string   // Freshness marker path
	Source        string   // Where the list came from
}

// ContractReport is the result of validating a ContractSpec against a repository.
type ContractReport struct {
	OK            bool     `json:"ok"`
	RepoRoot      string   `json:"repo_root"`
	RequiredFiles []string `json:"required_files"`
	Present       []string `json:"present"`
	Missing       []string `json:"missing"`
	Authoritative string   `json:"authoritative"`
	Source        string   `json:"source"`
}
