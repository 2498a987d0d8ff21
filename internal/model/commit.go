package model

// CommitStats are the line totals GitHub reports for a commit.
type CommitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

// FileChange is one file touched by a commit.
type FileChange struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// CommitSummary is a commit as listed by the repository commits endpoint.
type CommitSummary struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Login   string `json:"login,omitempty"`
	Date    string `json:"date"`
	URL     string `json:"url,omitempty"`
}

// CommitDetail is the input to the commit scorer. PatchExcerpt is a bounded
// prefix of the first changed file's patch.
type CommitDetail struct {
	CommitSummary
	Stats        CommitStats  `json:"stats"`
	Files        []FileChange `json:"files"`
	PatchExcerpt string       `json:"patchExcerpt"`
}

// ProjectContext is what the scorer knows about the enclosing project.
type ProjectContext struct {
	Name string
}

// RepositoryInfo is the subset of repository metadata the UI shows.
type RepositoryInfo struct {
	ID            int64  `json:"id"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	Description   string `json:"description"`
	HTMLURL       string `json:"htmlUrl"`
	DefaultBranch string `json:"defaultBranch"`
	Language      string `json:"language"`
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	OpenIssues    int    `json:"openIssues"`
	Private       bool   `json:"private"`
}

// Contributor is a repository contributor with their commit count.
type Contributor struct {
	Login         string `json:"login"`
	ID            int64  `json:"id"`
	AvatarURL     string `json:"avatarUrl"`
	Contributions int    `json:"contributions"`
}

// RepoAccess is a user's collaborator permission on a repository.
type RepoAccess struct {
	Permission string `json:"permission"`
	CanWrite   bool   `json:"canWrite"`
}
