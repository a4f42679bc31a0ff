package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snippet is one unit of retrievable company context (a business fact or a
// document fragment).
type Snippet struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	SourceType string    `json:"source_type"` // fact, document
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

type SnippetRepository struct {
	db *sql.DB
}

func NewSnippetRepository(db *sql.DB) *SnippetRepository {
	return &SnippetRepository{db: db}
}

// Add stores a context snippet for a company
func (r *SnippetRepository) Add(s *Snippet) error {
	s.ID = uuid.New().String()
	s.CreatedAt = time.Now()

	_, err := r.db.Exec(`INSERT INTO context_snippets (id, company_id, source_type, text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.CompanyID, s.SourceType, s.Text, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add snippet: %w", err)
	}
	return nil
}

// ListByCompany returns all snippets stored for a company
func (r *SnippetRepository) ListByCompany(companyID string) ([]*Snippet, error) {
	rows, err := r.db.Query(`SELECT id, company_id, source_type, text, created_at
		FROM context_snippets WHERE company_id = ?`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snippets []*Snippet
	for rows.Next() {
		s := &Snippet{}
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.SourceType, &s.Text, &s.CreatedAt); err != nil {
			return nil, err
		}
		snippets = append(snippets, s)
	}
	return snippets, rows.Err()
}
