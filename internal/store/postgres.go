package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateEmail is returned when an insert hits the case-insensitive
// unique index on accounts.email.
var ErrDuplicateEmail = errors.New("email already registered")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, role)
		VALUES ($1, LOWER($2), $3, $4, $5)
	`, account.ID, account.Email, account.DisplayName, account.PasswordHash, account.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var account Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE email = LOWER($1)
	`, strings.TrimSpace(email)).Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash,
		&account.Role, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *PostgresStore) GetAccountByID(ctx context.Context, accountID string) (Account, error) {
	var account Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, accountID).Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash,
		&account.Role, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *PostgresStore) InsertProject(ctx context.Context, project Project) error {
	stories, err := marshalStories(project.Stories)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, owner_id, stories, status, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, project.ID, project.Name, project.Description, project.OwnerID, stories, project.Status, project.IsPublic)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

const projectColumns = `
	p.id, p.name, p.description, p.owner_id, p.stories, p.status, p.is_public,
	p.created_at, p.updated_at, a.display_name, a.email
`

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN accounts a ON a.id = p.owner_id
		WHERE p.id = $1
	`, projectID)
	return scanProject(row)
}

func (s *PostgresStore) ListProjectsByOwner(ctx context.Context, ownerID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN accounts a ON a.id = p.owner_id
		WHERE p.owner_id = $1
		ORDER BY p.created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects by owner: %w", err)
	}
	return collectProjects(rows)
}

func (s *PostgresStore) ListAllProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN accounts a ON a.id = p.owner_id
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return collectProjects(rows)
}

// UpdateProject persists the mutable fields of an already-loaded project.
// No locking: concurrent saves are last-write-wins.
func (s *PostgresStore) UpdateProject(ctx context.Context, project Project) error {
	stories, err := marshalStories(project.Stories)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE projects
		SET name=$2, description=$3, stories=$4, status=$5, is_public=$6, updated_at=NOW()
		WHERE id=$1
	`, project.ID, project.Name, project.Description, stories, project.Status, project.IsPublic)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertBusiness(ctx context.Context, business Business) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, whatsapp, email, plan)
		VALUES ($1, $2, $3, $4, $5)
	`, business.ID, business.Name, business.WhatsApp, business.Email, business.Plan)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBusinesses(ctx context.Context) ([]Business, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, whatsapp, email, plan, created_at
		FROM businesses
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	items := make([]Business, 0)
	for rows.Next() {
		var item Business
		if err := rows.Scan(&item.ID, &item.Name, &item.WhatsApp, &item.Email, &item.Plan, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var item Project
	var stories []byte
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.OwnerID, &stories,
		&item.Status, &item.IsPublic, &item.CreatedAt, &item.UpdatedAt,
		&item.OwnerName, &item.OwnerEmail,
	)
	if err != nil {
		return Project{}, err
	}
	if err := json.Unmarshal(stories, &item.Stories); err != nil {
		return Project{}, fmt.Errorf("decode stories: %w", err)
	}
	return item, nil
}

func collectProjects(rows *sql.Rows) ([]Project, error) {
	defer rows.Close()
	items := make([]Project, 0)
	for rows.Next() {
		item, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func marshalStories(stories []Story) ([]byte, error) {
	if stories == nil {
		stories = []Story{}
	}
	encoded, err := json.Marshal(stories)
	if err != nil {
		return nil, fmt.Errorf("encode stories: %w", err)
	}
	return encoded, nil
}
