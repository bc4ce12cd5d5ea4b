package csvroster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

// Header is the column layout of the roster file
var Header = []string{"email", "password", "name", "number", "location"}

// Roster is a UserRepository backed by a CSV file. The file is read on every
// lookup so edits made outside the service are picked up without a restart.
type Roster struct {
	mu   sync.RWMutex
	path string
}

// Open returns a roster for path, creating the file with a header row if missing.
func Open(path string) (*Roster, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create roster directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create roster: %w", err)
		}
		w := csv.NewWriter(f)
		_ = w.Write(Header)
		w.Flush()
		if err := errors.Join(w.Error(), f.Close()); err != nil {
			return nil, fmt.Errorf("failed to write roster header: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat roster: %w", err)
	}
	return &Roster{path: path}, nil
}

func (r *Roster) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *Roster) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read()
}

func (r *Roster) Count(ctx context.Context) (int64, error) {
	users, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(users)), nil
}

func (r *Roster) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	if err := ensureTrailingNewline(r.path, f); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{user.Email, user.Password, user.Name, user.Phone, user.Location}); err != nil {
		return fmt.Errorf("failed to append roster row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// read parses the file by header name; rows without an email are skipped.
func (r *Roster) read() ([]*models.User, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []*models.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	users := []*models.User{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read roster row: %w", err)
		}
		email := field(row, "email")
		if email == "" {
			continue
		}
		users = append(users, &models.User{
			Email:    email,
			Password: field(row, "password"),
			Name:     field(row, "name"),
			Phone:    field(row, "number"),
			Location: field(row, "location"),
		})
	}
	return users, nil
}

// ensureTrailingNewline terminates a hand-edited last row before appending.
func ensureTrailingNewline(path string, f *os.File) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read roster: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return nil
	}
	_, err = f.Write([]byte("\n"))
	return err
}
