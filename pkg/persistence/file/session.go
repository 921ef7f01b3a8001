package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/planward/planward/pkg/models"
	"github.com/planward/planward/pkg/persistence"
)

const sessionsDir = "sessions"

// Sessions returns every stored session, newest first.
func (fp *Persistence) Sessions(ctx context.Context) ([]*models.Session, error) {
	root := os.DirFS(path.Join(fp.root, sessionsDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewSessionError("Sessions", "", err)
	}

	sessions := make([]*models.Session, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		sessionID := file[:len(file)-5] // Remove .json extension

		session, err := fp.SessionByID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}

		if session != nil {
			sessions = append(sessions, session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// SessionByID retrieves a session from the file system, or (nil, nil)
// when the file does not exist.
func (fp *Persistence) SessionByID(_ context.Context, id string) (*models.Session, error) {
	filePath := filepath.Clean(path.Join(fp.root, sessionsDir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewSessionError("SessionByID", id, err)
	}

	var session models.Session

	err = json.Unmarshal(body, &session)
	if err != nil {
		return nil, persistence.NewSessionError("SessionByID", id, err)
	}

	return &session, nil
}

// SaveSession writes the session as an indented JSON document. The
// stored UpdatedAt always reflects the write time, which is what the
// inactivity janitor keys on.
func (fp *Persistence) SaveSession(_ context.Context, session *models.Session) error {
	err := os.MkdirAll(path.Join(fp.root, sessionsDir), 0750)
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	session.UpdatedAt = now

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return persistence.NewSessionError("Save", session.ID, err)
	}

	filePath := path.Join(fp.root, sessionsDir, session.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// DeleteSession removes a session file. Deleting a session that does
// not exist is not an error.
func (fp *Persistence) DeleteSession(_ context.Context, id string) error {
	filePath := path.Join(fp.root, sessionsDir, id+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewSessionError("Delete", id, err)
	}

	return nil
}

// DeleteSessionsInactiveSince removes sessions last updated before the
// cutoff.
func (fp *Persistence) DeleteSessionsInactiveSince(ctx context.Context, cutoff time.Time) (int, error) {
	sessions, err := fp.Sessions(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, session := range sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := fp.DeleteSession(ctx, session.ID); err != nil {
			return removed, err
		}

		removed++
	}

	return removed, nil
}
