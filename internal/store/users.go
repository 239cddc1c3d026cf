package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = `id, display_name, project_id, birth_year, class_label, created_at, updated_at`

func scanUser(row scanner) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID, &u.DisplayName, &u.ProjectID, &u.BirthYear, &u.ClassLabel, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// User looks a user up by external account id.
func (t *Tx) User(id string) (*User, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", id, err)
	}
	return u, nil
}

// UpsertUser creates the user if missing, otherwise refreshes the display
// name. It reports whether a new record was created.
func (t *Tx) UpsertUser(id, displayName string) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT OR IGNORE INTO users (id, display_name) VALUES (?, ?)`, id, displayName)
	if err != nil {
		return false, fmt.Errorf("enrolling user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	if _, err := t.tx.ExecContext(t.ctx,
		`UPDATE users SET display_name = ?, updated_at = datetime('now')
		 WHERE id = ? AND display_name <> ?`,
		displayName, id, displayName,
	); err != nil {
		return false, fmt.Errorf("renaming user %s: %w", id, err)
	}
	return false, nil
}

// UpdateUser writes every mutable user field.
func (t *Tx) UpdateUser(u *User) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE users SET display_name = ?, project_id = ?, birth_year = ?, class_label = ?,
		        updated_at = datetime('now')
		 WHERE id = ?`,
		u.DisplayName, u.ProjectID, u.BirthYear, u.ClassLabel, u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", u.ID, err)
	}
	return requireAffected(res, "user "+u.ID)
}

// Members returns the users assigned to projectID, ordered by display name.
func (t *Tx) Members(projectID int64) ([]User, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+userColumns+` FROM users WHERE project_id = ? ORDER BY display_name COLLATE NOCASE`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing members of #%d: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// ClearAssignments unassigns every member of projectID and returns how many
// users were changed.
func (t *Tx) ClearAssignments(projectID int64) (int64, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE users SET project_id = NULL, updated_at = datetime('now') WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("clearing members of #%d: %w", projectID, err)
	}
	return res.RowsAffected()
}
