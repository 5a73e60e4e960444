// Package contact persists messages sent through the public contact form.
package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/folioworks/portfolio-api/internal/db"
	"github.com/folioworks/portfolio-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a submission id does not exist.
	ErrNotFound = errors.New("contact submission not found")
	// ErrNotConfigured is returned when no database is available.
	ErrNotConfigured = errors.New("contact store not configured")
)

// ValidationError lists the required fields that were missing or blank.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Input is a contact form submission.
type Input struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	// Content is accepted as an older name for Message.
	Content string `json:"content,omitempty"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// Normalize trims every field and folds Content into Message.
func (in Input) Normalize() Input {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		in.Message = strings.TrimSpace(in.Content)
	}
	in.Content = ""
	return in
}

// Validate requires every field to be non-empty after trimming.
func (in Input) Validate() error {
	n := in.Normalize()
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"firstName", n.FirstName},
		{"lastName", n.LastName},
		{"email", n.Email},
		{"subject", n.Subject},
		{"message", n.Message},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Store reads and writes contact submissions.
type Store struct {
	db *gorm.DB
}

// NewStore returns a store backed by conn.
func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db.WithContext(ctx), nil
}

// Create validates and persists a submission.
func (s *Store) Create(ctx context.Context, in Input) (*models.ContactSubmission, error) {
	if errValidate := in.Validate(); errValidate != nil {
		return nil, errValidate
	}
	q, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	in = in.Normalize()

	meta, errMeta := json.Marshal(map[string]string{"ip": in.IP, "userAgent": in.UserAgent})
	if errMeta != nil {
		return nil, fmt.Errorf("encode contact metadata: %w", errMeta)
	}
	row := &models.ContactSubmission{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		Metadata:  datatypes.JSON(meta),
	}
	if errCreate := q.Create(row).Error; errCreate != nil {
		return nil, fmt.Errorf("save contact submission: %w", errCreate)
	}
	return row, nil
}

// searchColumns are matched by List when a query is given.
var searchColumns = []string{"email", "first_name", "last_name", "subject", "message"}

// List returns submissions newest first. A non-blank query keeps only rows
// whose sender or text contains it, ignoring case.
func (s *Store) List(ctx context.Context, query string) ([]models.ContactSubmission, error) {
	q, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	if term := strings.TrimSpace(query); term != "" {
		pattern := db.NormalizeLikePattern(q, "%"+escapeLike(term)+"%")
		exprs := make([]string, 0, len(searchColumns))
		args := make([]any, 0, len(searchColumns))
		for _, col := range searchColumns {
			exprs = append(exprs, db.CaseInsensitiveLikeExpr(q, col)+` ESCAPE '\'`)
			args = append(args, pattern)
		}
		q = q.Where(strings.Join(exprs, " OR "), args...)
	}
	var rows []models.ContactSubmission
	if errFind := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("list contact submissions: %w", errFind)
	}
	return rows, nil
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(term)
}

// Delete removes a submission by id.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	q, err := s.conn(ctx)
	if err != nil {
		return err
	}
	res := q.Delete(&models.ContactSubmission{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete contact submission: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
