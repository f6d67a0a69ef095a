package app

import (
	"time"

	"tienda/api/internal/progress"
	"tienda/api/internal/store"
)

type StoryView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Acceptance  string     `json:"acceptance"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type OwnerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Empty on the public projection.
	Email string `json:"email,omitempty"`
}

type ProjectView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Owner       OwnerView   `json:"owner"`
	Stories     []StoryView `json:"stories"`
	Status      string      `json:"status"`
	IsPublic    bool        `json:"isPublic"`
	Progress    int         `json:"progress"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type AccountView struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

type BusinessView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	WhatsApp  string    `json:"whatsapp"`
	Email     string    `json:"email"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
}

// projectView assembles the response shape for a project. Progress is
// recomputed on every call, never read from storage. The owner's email is
// attached only for authenticated views.
func projectView(project store.Project, includeOwnerEmail bool) ProjectView {
	stories := make([]StoryView, 0, len(project.Stories))
	for _, story := range project.Stories {
		stories = append(stories, StoryView{
			ID:          story.ID,
			Title:       story.Title,
			Description: story.Description,
			Acceptance:  story.Acceptance,
			Status:      story.Status,
			CompletedAt: story.CompletedAt,
		})
	}
	owner := OwnerView{ID: project.OwnerID, Name: project.OwnerName}
	if includeOwnerEmail {
		owner.Email = project.OwnerEmail
	}
	return ProjectView{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Owner:       owner,
		Stories:     stories,
		Status:      project.Status,
		IsPublic:    project.IsPublic,
		Progress:    progress.Percent(project.Stories),
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

func accountView(account store.Account) AccountView {
	return AccountView{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        account.Role,
		CreatedAt:   account.CreatedAt,
	}
}

func businessView(business store.Business) BusinessView {
	return BusinessView{
		ID:        business.ID,
		Name:      business.Name,
		WhatsApp:  business.WhatsApp,
		Email:     business.Email,
		Plan:      business.Plan,
		CreatedAt: business.CreatedAt,
	}
}
