package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"tienda/api/internal/accounts"
	"tienda/api/internal/auth"
	"tienda/api/internal/cache"
	"tienda/api/internal/config"
	"tienda/api/internal/rbac"
	"tienda/api/internal/store"
	"tienda/api/internal/util"
)

// Session is the authenticated caller resolved from a bearer token.
type Session struct {
	AccountID string
	Name      string
	Email     string
	Role      rbac.Role
}

type StoryInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Acceptance  string `json:"acceptance"`
	Status      string `json:"status"`
}

type CreateProjectInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Stories     []StoryInput `json:"stories"`
}

// UpdateProjectInput is a partial patch. Pointer fields distinguish an
// absent key from an explicit empty value; a present Stories array replaces
// the whole sequence.
type UpdateProjectInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	IsPublic    *bool         `json:"isPublic"`
	Stories     *[]StoryInput `json:"stories"`
}

type UpdateStoryInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Acceptance  *string `json:"acceptance"`
	Status      *string `json:"status"`
}

type SyncProjectInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Stories     []StoryInput `json:"stories"`
}

type CreateBusinessInput struct {
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
	Plan     string `json:"plan"`
}

type LoginResult struct {
	Token   string      `json:"token"`
	Account AccountView `json:"user"`
}

type dataStore interface {
	GetAccountByID(ctx context.Context, accountID string) (store.Account, error)
	InsertProject(ctx context.Context, project store.Project) error
	GetProject(ctx context.Context, projectID string) (store.Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]store.Project, error)
	ListAllProjects(ctx context.Context) ([]store.Project, error)
	UpdateProject(ctx context.Context, project store.Project) error
	DeleteProject(ctx context.Context, projectID string) error
	InsertBusiness(ctx context.Context, business store.Business) error
	ListBusinesses(ctx context.Context) ([]store.Business, error)
	Ping(ctx context.Context) error
}

type Service struct {
	cfg         config.Config
	store       dataStore
	accounts    *accounts.Service
	publicCache *cache.PublicViewCache
}

func New(cfg config.Config, dataStore *store.PostgresStore, publicCache *cache.PublicViewCache) *Service {
	return &Service{
		cfg:         cfg,
		store:       dataStore,
		accounts:    accounts.NewService(dataStore),
		publicCache: publicCache,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Register creates an account with the given canonical role.
func (s *Service) Register(ctx context.Context, req accounts.RegisterRequest) (AccountView, error) {
	account, err := s.accounts.Register(ctx, req)
	if err != nil {
		return AccountView{}, err
	}
	return accountView(account), nil
}

// Login verifies a credential pair and issues a signed bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	account, err := s.accounts.Login(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), account.ID, account.DisplayName, account.Role, s.cfg.AccessTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, Account: accountView(account)}, nil
}

// SessionFromToken validates a bearer token and resolves the subject
// account. A token whose account no longer exists is treated as invalid.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	account, err := s.store.GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	return Session{
		AccountID: account.ID,
		Name:      account.DisplayName,
		Email:     account.Email,
		Role:      rbac.Role(account.Role),
	}, nil
}

func (s *Service) isOwnerOrAdmin(session Session, ownerID string) bool {
	return rbac.IsAdmin(session.Role) || session.AccountID == ownerID
}

func (s *Service) CreateProject(ctx context.Context, session Session, input CreateProjectInput) (ProjectView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ProjectView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "project name is required",
			map[string]string{"name": "name is required"})
	}

	project := store.Project{
		ID:          util.NewID("proj"),
		Name:        name,
		Description: input.Description,
		OwnerID:     session.AccountID,
		Stories:     newStories(input.Stories),
		Status:      "active",
		IsPublic:    true,
	}
	if err := s.store.InsertProject(ctx, project); err != nil {
		return ProjectView{}, err
	}

	saved, err := s.store.GetProject(ctx, project.ID)
	if err != nil {
		return ProjectView{}, err
	}
	return projectView(saved, true), nil
}

func (s *Service) ListMine(ctx context.Context, session Session) ([]ProjectView, error) {
	projects, err := s.store.ListProjectsByOwner(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, projectView(project, true))
	}
	return views, nil
}

func (s *Service) ListAll(ctx context.Context, session Session) ([]ProjectView, error) {
	if !rbac.IsAdmin(session.Role) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "admin role required", nil)
	}
	projects, err := s.store.ListAllProjects(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		views = append(views, projectView(project, true))
	}
	return views, nil
}

func (s *Service) GetProject(ctx context.Context, session Session, projectID string) (ProjectView, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	if !s.isOwnerOrAdmin(session, project.OwnerID) {
		return ProjectView{}, domainError(http.StatusForbidden, "FORBIDDEN", "you do not have access to this project", nil)
	}
	return projectView(project, true), nil
}

// GetPublicProject serves the unauthenticated read-only projection. The
// owner's email is redacted; only the display name is exposed.
func (s *Service) GetPublicProject(ctx context.Context, projectID string) (ProjectView, error) {
	if s.publicCache != nil {
		payload, err := s.publicCache.Get(ctx, projectID)
		if err != nil {
			log.Printf("public cache get failed: %v", err)
		} else if payload != nil {
			var view ProjectView
			if err := json.Unmarshal(payload, &view); err == nil {
				return view, nil
			}
		}
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	if !project.IsPublic {
		return ProjectView{}, domainError(http.StatusForbidden, "FORBIDDEN", "project is not public", nil)
	}

	view := projectView(project, false)
	if s.publicCache != nil {
		if payload, err := json.Marshal(view); err == nil {
			if err := s.publicCache.Set(ctx, projectID, payload); err != nil {
				log.Printf("public cache set failed: %v", err)
			}
		}
	}
	return view, nil
}

func (s *Service) UpdateProject(ctx context.Context, session Session, projectID string, patch UpdateProjectInput) (ProjectView, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	if !s.isOwnerOrAdmin(session, project.OwnerID) {
		return ProjectView{}, domainError(http.StatusForbidden, "FORBIDDEN", "you do not have access to this project", nil)
	}

	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			project.Name = name
		}
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}
	if patch.IsPublic != nil {
		project.IsPublic = *patch.IsPublic
	}
	if patch.Stories != nil {
		project.Stories = replaceStories(*patch.Stories)
	}

	if err := s.store.UpdateProject(ctx, project); err != nil {
		return ProjectView{}, err
	}
	s.invalidatePublicView(ctx, projectID)

	saved, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	return projectView(saved, true), nil
}

func (s *Service) DeleteProject(ctx context.Context, session Session, projectID string) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !s.isOwnerOrAdmin(session, project.OwnerID) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "you do not have access to this project", nil)
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	s.invalidatePublicView(ctx, projectID)
	return nil
}

func (s *Service) UpdateStory(ctx context.Context, session Session, projectID, storyID string, patch UpdateStoryInput) (ProjectView, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	if !s.isOwnerOrAdmin(session, project.OwnerID) {
		return ProjectView{}, domainError(http.StatusForbidden, "FORBIDDEN", "you do not have access to this project", nil)
	}

	index := -1
	for i, story := range project.Stories {
		if story.ID == storyID {
			index = i
			break
		}
	}
	if index < 0 {
		return ProjectView{}, domainError(http.StatusNotFound, "NOT_FOUND", "story not found", nil)
	}

	story := project.Stories[index]
	if patch.Title != nil {
		story.Title = *patch.Title
	}
	if patch.Description != nil {
		story.Description = *patch.Description
	}
	if patch.Acceptance != nil {
		story.Acceptance = *patch.Acceptance
	}
	// An unknown status value is ignored rather than rejected; the story
	// keeps its current status.
	if patch.Status != nil && validStoryStatus(*patch.Status) {
		story.Status = *patch.Status
		if story.Status == store.StoryDone {
			now := time.Now()
			story.CompletedAt = &now
		} else {
			story.CompletedAt = nil
		}
	}
	project.Stories[index] = story

	if err := s.store.UpdateProject(ctx, project); err != nil {
		return ProjectView{}, err
	}
	s.invalidatePublicView(ctx, projectID)

	saved, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	return projectView(saved, true), nil
}

// SyncProjects bulk-creates projects from a client's local pending list.
// Entries without a name are skipped silently. The operation is
// at-least-once: resubmitting the same batch creates duplicates, and the
// caller clears its local list only after a successful response.
func (s *Service) SyncProjects(ctx context.Context, session Session, inputs []SyncProjectInput) (int, error) {
	created := 0
	for _, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			continue
		}
		project := store.Project{
			ID:          util.NewID("proj"),
			Name:        name,
			Description: input.Description,
			OwnerID:     session.AccountID,
			Stories:     newStories(input.Stories),
			Status:      "active",
			IsPublic:    true,
		}
		if err := s.store.InsertProject(ctx, project); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *Service) ListBusinesses(ctx context.Context) ([]BusinessView, error) {
	businesses, err := s.store.ListBusinesses(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]BusinessView, 0, len(businesses))
	for _, business := range businesses {
		views = append(views, businessView(business))
	}
	return views, nil
}

func (s *Service) CreateBusiness(ctx context.Context, input CreateBusinessInput) (BusinessView, error) {
	fields := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(input.WhatsApp) == "" {
		fields["whatsapp"] = "whatsapp is required"
	}
	if strings.TrimSpace(input.Email) == "" {
		fields["email"] = "email is required"
	}
	if len(fields) > 0 {
		return BusinessView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing required fields", fields)
	}

	business := store.Business{
		ID:       util.NewID("biz"),
		Name:     strings.TrimSpace(input.Name),
		WhatsApp: strings.TrimSpace(input.WhatsApp),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Plan:     input.Plan,
	}
	if business.Plan == "" {
		business.Plan = "freemium"
	}
	if err := s.store.InsertBusiness(ctx, business); err != nil {
		return BusinessView{}, err
	}
	business.CreatedAt = time.Now()
	return businessView(business), nil
}

func (s *Service) loadProject(ctx context.Context, projectID string) (store.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Project{}, domainError(http.StatusNotFound, "NOT_FOUND", "project not found", nil)
		}
		return store.Project{}, err
	}
	return project, nil
}

func (s *Service) invalidatePublicView(ctx context.Context, projectID string) {
	if s.publicCache == nil {
		return
	}
	if err := s.publicCache.Invalidate(ctx, projectID); err != nil {
		log.Printf("public cache invalidate failed: %v", err)
	}
}

// newStories normalizes stories supplied at creation or sync time. Status
// is always reset to pending: a project never starts with pre-done work.
func newStories(inputs []StoryInput) []store.Story {
	stories := make([]store.Story, 0, len(inputs))
	for _, input := range inputs {
		stories = append(stories, store.Story{
			ID:          util.NewID("story"),
			Title:       input.Title,
			Description: input.Description,
			Acceptance:  input.Acceptance,
			Status:      store.StoryPending,
		})
	}
	return stories
}

// replaceStories builds the full replacement sequence for a project update.
// Statuses are clamped to pending|done, defaulting to pending; a done story
// gets its completion timestamp stamped here.
func replaceStories(inputs []StoryInput) []store.Story {
	now := time.Now()
	stories := make([]store.Story, 0, len(inputs))
	for _, input := range inputs {
		status := store.StoryPending
		if validStoryStatus(input.Status) {
			status = input.Status
		}
		story := store.Story{
			ID:          util.NewID("story"),
			Title:       input.Title,
			Description: input.Description,
			Acceptance:  input.Acceptance,
			Status:      status,
		}
		if status == store.StoryDone {
			story.CompletedAt = &now
		}
		stories = append(stories, story)
	}
	return stories
}

func validStoryStatus(status string) bool {
	return status == store.StoryPending || status == store.StoryDone
}
