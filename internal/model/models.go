// internal/model/models.go
package model

import "time"

// Subscription tiers and statuses as reported by the billing provider.
const (
	TierFree = "FREE"
	TierPro  = "PRO"

	StatusActive    = "ACTIVE"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
)

// User is an account holder. RepositoryCount is the quota counter owned by the
// billing integration; it is only ever changed through the store's reserve and
// release operations.
type User struct {
	ID                 string
	Name               string
	Email              string
	Image              *string
	SubscriptionTier   string
	SubscriptionStatus string
	PolarCustomerID    *string
	RepositoryCount    int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Account holds a provider OAuth token for a user, e.g. (userID, "github").
type Account struct {
	ID          string
	UserID      string
	ProviderID  string
	AccessToken string
	CreatedAt   time.Time
}

// Repository is a connected repository. At most one row exists per
// (UserID, GithubID); the row is created only after a remote webhook has been
// registered for it.
type Repository struct {
	ID        string
	GithubID  int64
	Owner     string
	Name      string
	FullName  string
	URL       string
	UserID    string
	CreatedAt time.Time
}

// RepoSummary is a repository as listed from the provider, annotated with
// whether the user has already connected it.
type RepoSummary struct {
	GithubID    int64  `json:"github_id"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	IsConnected bool   `json:"is_connected"`
}

// WebhookHandle identifies a webhook registered with the provider.
type WebhookHandle struct {
	ID  int64
	URL string
}

// RepoFile is one file fetched from a repository tree.
type RepoFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ReviewFailure records a pull-request review that failed after the webhook
// was already acknowledged, so the drop is visible and retryable later.
type ReviewFailure struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Repo      string    `json:"repo"`
	PRNumber  int       `json:"pr_number"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
