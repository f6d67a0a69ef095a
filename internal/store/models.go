package store

import "time"

type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	StoryPending = "pending"
	StoryDone    = "done"
)

// Story is an embedded sub-document of a project. Stories have no identity
// outside their parent; the id is only stable within the parent's sequence.
type Story struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Acceptance  string     `json:"acceptance"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type Project struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	Stories     []Story
	Status      string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Joined fields for API responses
	OwnerName  string
	OwnerEmail string
}

type Business struct {
	ID        string
	Name      string
	WhatsApp  string
	Email     string
	Plan      string
	CreatedAt time.Time
}
