package model

import "time"

// Project is a GitHub repository registered by its owner.
// Owner and Repo are the repository coordinates (github.com/{Owner}/{Repo});
// OwnerID is the DevPulse user who registered it.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RepoURL   string    `json:"repoUrl"`
	Owner     string    `json:"owner"`
	Repo      string    `json:"repo"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectPatch is a partial update. A nil field leaves the stored value alone.
type ProjectPatch struct {
	Name    *string `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	RepoURL *string `json:"repoUrl,omitempty" validate:"omitnil,min=1"`
	Owner   *string `json:"owner,omitempty" validate:"omitnil,min=1"`
	Repo    *string `json:"repo,omitempty" validate:"omitnil,min=1"`
}

// Apply merges the supplied fields onto p.
func (pp ProjectPatch) Apply(p *Project) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.RepoURL != nil {
		p.RepoURL = *pp.RepoURL
	}
	if pp.Owner != nil {
		p.Owner = *pp.Owner
	}
	if pp.Repo != nil {
		p.Repo = *pp.Repo
	}
}
