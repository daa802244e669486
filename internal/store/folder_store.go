package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thuale/todoflow/internal/model"
)

// CreateFolder inserts a new folder. Generates a UUID if ID is empty and
// returns the stored row.
func (s *SQLiteStore) CreateFolder(ctx context.Context, folder model.Folder) (model.Folder, error) {
	if strings.TrimSpace(folder.Name) == "" {
		return model.Folder{}, fmt.Errorf("folder name must not be empty")
	}
	if folder.ID == "" {
		folder.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now

	if folder.SortOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM folders")
		if err != nil {
			return model.Folder{}, fmt.Errorf("getting max folder sort_order: %w", err)
		}
		folder.SortOrder = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (id, name, color, icon, archived, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		folder.ID, folder.Name, folder.Color, folder.Icon,
		boolToInt(folder.Archived), folder.SortOrder,
		folder.CreatedAt, folder.UpdatedAt,
	)
	if err != nil {
		return model.Folder{}, fmt.Errorf("creating folder: %w", err)
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: folder.ID, Op: OpCreate})
	return folder, nil
}

// UpdateFolder updates an existing folder by ID.
func (s *SQLiteStore) UpdateFolder(ctx context.Context, folder model.Folder) error {
	if strings.TrimSpace(folder.Name) == "" {
		return fmt.Errorf("folder name must not be empty")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE folders SET name = ?, color = ?, icon = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		folder.Name, folder.Color, folder.Icon, folder.SortOrder,
		time.Now().UTC(), folder.ID,
	)
	if err != nil {
		return fmt.Errorf("updating folder %s: %w", folder.ID, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("updating folder %s: %w", folder.ID, err)
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: folder.ID, Op: OpUpdate})
	return nil
}

// DeleteFolder removes a folder by ID. Its todos fall back to the inbox.
func (s *SQLiteStore) DeleteFolder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting folder %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("deleting folder %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: id, Op: OpDelete})
	return nil
}

// GetFolderByID retrieves a single folder by ID.
func (s *SQLiteStore) GetFolderByID(ctx context.Context, id string) (*model.Folder, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM folders WHERE id = ?", id)
	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("getting folder %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting folder %s: %w", id, err)
	}
	return &folder, nil
}

// GetFolders retrieves folders ordered by sort_order, optionally
// including archived ones.
func (s *SQLiteStore) GetFolders(ctx context.Context, includeArchived bool) ([]model.Folder, error) {
	query := "SELECT * FROM folders"
	if !includeArchived {
		query += " WHERE archived = 0"
	}
	query += " ORDER BY sort_order"

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	defer rows.Close()

	var folders []model.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// ArchiveFolder marks a folder as archived.
func (s *SQLiteStore) ArchiveFolder(ctx context.Context, id string) error {
	return s.setFolderArchived(ctx, id, true)
}

// RestoreFolder clears the archived flag.
func (s *SQLiteStore) RestoreFolder(ctx context.Context, id string) error {
	return s.setFolderArchived(ctx, id, false)
}

func (s *SQLiteStore) setFolderArchived(ctx context.Context, id string, archived bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE folders SET archived = ?, updated_at = ? WHERE id = ?",
		boolToInt(archived), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("archiving folder %s: %w", id, err)
	}
	if err := rowsAffected(result); err != nil {
		return fmt.Errorf("archiving folder %s: %w", id, err)
	}
	s.events.Publish(Event{Entity: EntityFolder, ID: id, Op: OpUpdate})
	return nil
}

// scanFolder scans a folder row.
func scanFolder(row interface{ Scan(dest ...interface{}) error }) (model.Folder, error) {
	var (
		folder      model.Folder
		archivedInt int
	)

	err := row.Scan(
		&folder.ID, &folder.Name, &folder.Color, &folder.Icon,
		&archivedInt, &folder.SortOrder,
		&folder.CreatedAt, &folder.UpdatedAt,
	)
	if err != nil {
		return model.Folder{}, err
	}

	folder.Archived = archivedInt != 0
	return folder, nil
}
