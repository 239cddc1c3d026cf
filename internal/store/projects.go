package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const projectColumns = `id, name, description, leader_id, member_role_id, leader_role_id, color, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.LeaderID,
		&p.MemberRoleID, &p.LeaderRoleID, &p.Color, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Project looks a project up by its unique name.
func (t *Tx) Project(name string) (*Project, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading project %q: %w", name, err)
	}
	return p, nil
}

// ProjectByID looks a project up by its row id.
func (t *Tx) ProjectByID(id int64) (*Project, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project #%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading project #%d: %w", id, err)
	}
	return p, nil
}

// InsertProject persists a new project and sets p.ID. A taken name or role
// id yields ErrAlreadyExists.
func (t *Tx) InsertProject(p *Project) error {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO projects (name, description, leader_id, member_role_id, leader_role_id, color)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.LeaderID, p.MemberRoleID, p.LeaderRoleID, p.Color,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("project %q: %w", p.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("inserting project %q: %w", p.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("inserting project %q: %w", p.Name, err)
	}
	p.ID = id
	return nil
}

// UpdateProject writes the mutable project fields (description, leader, color).
func (t *Tx) UpdateProject(p *Project) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE projects SET description = ?, leader_id = ?, color = ? WHERE id = ?`,
		p.Description, p.LeaderID, p.Color, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project %q: %w", p.Name, err)
	}
	return requireAffected(res, fmt.Sprintf("project %q", p.Name))
}

// DeleteProject removes the project row. Links go with it (ON DELETE CASCADE).
func (t *Tx) DeleteProject(id int64) error {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project #%d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("project #%d", id))
}

// ProjectsLedBy returns the projects whose leader is userID.
func (t *Tx) ProjectsLedBy(userID string) ([]Project, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+projectColumns+` FROM projects WHERE leader_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects led by %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
