package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Link looks up the link labelled label on projectID.
func (t *Tx) Link(projectID int64, label string) (*RepoLink, error) {
	var l RepoLink
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT id, project_id, label, url, created_at FROM repo_links WHERE project_id = ? AND label = ?`,
		projectID, label,
	).Scan(&l.ID, &l.ProjectID, &l.Label, &l.URL, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("link %q: %w", label, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading link %q: %w", label, err)
	}
	return &l, nil
}

// InsertLink adds a link and sets l.ID. A label already used on the same
// project yields ErrDuplicateLabel.
func (t *Tx) InsertLink(l *RepoLink) error {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO repo_links (project_id, label, url) VALUES (?, ?, ?)`,
		l.ProjectID, l.Label, l.URL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("link %q: %w", l.Label, ErrDuplicateLabel)
		}
		return fmt.Errorf("inserting link %q: %w", l.Label, err)
	}
	l.ID, _ = res.LastInsertId()
	return nil
}

// UpdateLinkURL points an existing link at a new URL.
func (t *Tx) UpdateLinkURL(projectID int64, label, url string) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE repo_links SET url = ? WHERE project_id = ? AND label = ?`, url, projectID, label)
	if err != nil {
		return fmt.Errorf("updating link %q: %w", label, err)
	}
	return requireAffected(res, fmt.Sprintf("link %q", label))
}

// DeleteLink removes one link.
func (t *Tx) DeleteLink(projectID int64, label string) error {
	res, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM repo_links WHERE project_id = ? AND label = ?`, projectID, label)
	if err != nil {
		return fmt.Errorf("deleting link %q: %w", label, err)
	}
	return requireAffected(res, fmt.Sprintf("link %q", label))
}

// DeleteLinks removes every link of projectID and returns the count.
func (t *Tx) DeleteLinks(projectID int64) (int64, error) {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM repo_links WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("deleting links of #%d: %w", projectID, err)
	}
	return res.RowsAffected()
}

// Links returns the links of projectID ordered by label.
func (t *Tx) Links(projectID int64) ([]RepoLink, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, project_id, label, url, created_at FROM repo_links WHERE project_id = ? ORDER BY label`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("listing links of #%d: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []RepoLink
	for rows.Next() {
		var l RepoLink
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.Label, &l.URL, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
