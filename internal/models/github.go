package models

import "strings"

// GitHubPullRequestEvent is the subset of a pull_request event payload read
// from GITHUB_EVENT_PATH
type GitHubPullRequestEvent struct {
	Action      string            `json:"action"`
	Number      int               `json:"number"`
	PullRequest GitHubPullRequest `json:"pull_request"`
	Repository  GitHubRepository  `json:"repository"`
	Sender      GitHubUser        `json:"sender"`
}

// GitHubPullRequest represents a pull request
type GitHubPullRequest struct {
	Number  int       `json:"number"`
	Title   string    `json:"title"`
	HTMLURL string    `json:"html_url"`
	Head    GitHubRef `json:"head"`
	Base    GitHubRef `json:"base"`
}

// GitHubRef is one side of a pull request
type GitHubRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// GitHubRepository represents a repository
type GitHubRepository struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Private       bool       `json:"private"`
	Owner         GitHubUser `json:"owner"`
	HTMLURL       string     `json:"html_url"`
	DefaultBranch string     `json:"default_branch"`
}

// GitHubUser represents a user
type GitHubUser struct {
	Login string `json:"login"`
	ID    int    `json:"id"`
	Type  string `json:"type"`
}

// GitHubComment is an issue comment
type GitHubComment struct {
	ID      int64      `json:"id"`
	Body    string     `json:"body"`
	HTMLURL string     `json:"html_url"`
	User    GitHubUser `json:"user"`
}

// GitHubCommentRequest creates or edits an issue comment
type GitHubCommentRequest struct {
	Body string `json:"body"`
}

// GitHubStatusRequest creates a commit status
type GitHubStatusRequest struct {
	State       string `json:"state"`
	TargetURL   string `json:"target_url,omitempty"`
	Description string `json:"description"`
	Context     string `json:"context"`
}

// GitHubErrorResponse is the API error body
type GitHubErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

// GetRepositoryName returns the full repository name
func (e GitHubPullRequestEvent) GetRepositoryName() string {
	return e.Repository.FullName
}

// GetNumber returns the pull request number
func (e GitHubPullRequestEvent) GetNumber() int {
	if e.Number != 0 {
		return e.Number
	}
	return e.PullRequest.Number
}

// GetHeadBranch returns the head branch without refs/heads/ prefix
func (e GitHubPullRequestEvent) GetHeadBranch() string {
	return strings.TrimPrefix(e.PullRequest.Head.Ref, "refs/heads/")
}

// GetBaseBranch returns the base branch without refs/heads/ prefix
func (e GitHubPullRequestEvent) GetBaseBranch() string {
	return strings.TrimPrefix(e.PullRequest.Base.Ref, "refs/heads/")
}

// GetHeadSHA returns the head commit
func (e GitHubPullRequestEvent) GetHeadSHA() string {
	return e.PullRequest.Head.SHA
}

// CommentMarker identifies the report comment so later runs edit it in place
const CommentMarker = "<!-- perfbudget-report -->"
