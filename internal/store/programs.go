package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/domain"
)

func (r *Repository) CreateProgram(ctx context.Context, p domain.Program) error {
	const q = `INSERT INTO programs (tenant_id, program_id, name, description, tags, extra, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.engine.helper.Exec(ctx, q,
		p.TenantID, p.ProgramID, p.Name, p.Description,
		encodeStrings(p.Tags), encodeExtra(p.Extra),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return r.engine.mapErr(err)
}

func (r *Repository) GetProgram(ctx context.Context, tenantID, programID string) (domain.Program, error) {
	const q = `SELECT tenant_id, program_id, name, description, tags, extra, created_at, updated_at
	           FROM programs WHERE tenant_id = ? AND program_id = ?`
	row := r.engine.helper.QueryRow(ctx, q, tenantID, programID)
	return scanProgram(row)
}

func (r *Repository) ListPrograms(ctx context.Context, tenantID string) ([]domain.Program, error) {
	const q = `SELECT tenant_id, program_id, name, description, tags, extra, created_at, updated_at
	           FROM programs WHERE tenant_id = ? ORDER BY program_id`
	rows, err := r.engine.helper.Query(ctx, q, tenantID)
	if err != nil {
		return nil, r.engine.mapErr(err)
	}
	defer rows.Close()

	var out []domain.Program
	for rows.Next() {
		p, err := scanProgramRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateProgram(ctx context.Context, p domain.Program) error {
	const q = `UPDATE programs SET name = ?, description = ?, tags = ?, extra = ?, updated_at = ?
	           WHERE tenant_id = ? AND program_id = ?`
	res, err := r.engine.helper.Exec(ctx, q,
		p.Name, p.Description, encodeStrings(p.Tags), encodeExtra(p.Extra), formatTime(p.UpdatedAt),
		p.TenantID, p.ProgramID)
	if err != nil {
		return r.engine.mapErr(err)
	}
	return requireRowsAffected(res, apperrors.ErrNotFound)
}

func (r *Repository) DeleteProgram(ctx context.Context, tenantID, programID string) error {
	const q = `DELETE FROM programs WHERE tenant_id = ? AND program_id = ?`
	res, err := r.engine.helper.Exec(ctx, q, tenantID, programID)
	if err != nil {
		return r.engine.mapErr(err)
	}
	return requireRowsAffected(res, apperrors.ErrNotFound)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProgram(row *sql.Row) (domain.Program, error) {
	return scanProgramFrom(row)
}

func scanProgramRows(rows *sql.Rows) (domain.Program, error) {
	return scanProgramFrom(rows)
}

func scanProgramFrom(s scannable) (domain.Program, error) {
	var (
		p                  domain.Program
		tags, extra        string
		createdAt, updated string
	)
	if err := s.Scan(&p.TenantID, &p.ProgramID, &p.Name, &p.Description, &tags, &extra, &createdAt, &updated); err != nil {
		if err == sql.ErrNoRows {
			return domain.Program{}, apperrors.ErrNotFound
		}
		return domain.Program{}, err
	}
	p.Tags = decodeStrings(tags)
	p.Extra = decodeExtra(extra)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}
