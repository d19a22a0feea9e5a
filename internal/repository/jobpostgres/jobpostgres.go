// Package jobpostgres stores watermark jobs in PostgreSQL
package jobpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/UnendingLoop/TextWatermark/internal/model"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// через столько минут in_progress считается брошенной воркером
const staleAfter = "10 minutes"

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, j *model.Job) error {
	query := `INSERT INTO jobs (job_uid, source_key, result_key, content_type, text, font_name, font_ref, font_size, color, opacity, anchor, status, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	return p.DB.QueryRowContext(ctx, query,
		j.UID, j.SourceKey, j.ResultKey, j.ContentType,
		j.Text, j.FontName, j.FontRef, j.FontSize, j.Color, j.Opacity, j.Anchor,
		j.Status, j.ErrMsg, j.CreatedAt, j.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Job, error) {
	query := `SELECT job_uid, source_key, result_key, content_type, text, font_name, font_ref, font_size, color, opacity, anchor, status, err_msg, created_at, updated_at
	FROM jobs
	WHERE job_uid = $1`
	var job model.Job

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&job.UID,
		&job.SourceKey,
		&job.ResultKey,
		&job.ContentType,
		&job.Text,
		&job.FontName,
		&job.FontRef,
		&job.FontSize,
		&job.Color,
		&job.Opacity,
		&job.Anchor,
		&job.Status,
		&job.ErrMsg,
		&job.CreatedAt,
		&job.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrJobNotFound
		default:
			return nil, err // 500
		}
	}
	return &job, nil
}

// GetList expects req.Sort and req.Order already normalized to column/direction names.
func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	query := fmt.Sprintf(`SELECT job_uid, content_type, text, font_name, font_size, color, opacity, anchor, status, err_msg, created_at, updated_at
	FROM jobs
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error while closing *sql.Rows after scanning")
		}
	}()

	jobs := make([]model.Job, 0, req.Limit)
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.UID,
			&job.ContentType,
			&job.Text,
			&job.FontName,
			&job.FontSize,
			&job.Color,
			&job.Opacity,
			&job.Anchor,
			&job.Status,
			&job.ErrMsg,
			&job.CreatedAt,
			&job.UpdatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return jobs, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM jobs
	WHERE job_uid = $1`

	return execOne(p.DB.Master.ExecContext(ctx, query, id))
}

// Claim atomically moves a job to in_progress. Jobs that are done or are
// being rendered by a live worker are not claimable: model.ErrJobBusy.
func (p PostgresRepo) Claim(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE jobs SET status = $1, updated_at = now()
	WHERE job_uid = $2
	AND (status IN ($3, $4) OR (status = $1 AND updated_at < now() - interval '%s'))`, staleAfter)

	err := execOne(p.DB.Master.ExecContext(ctx, query, model.StatusInProgress, id, model.StatusCreated, model.StatusFailed))
	if errors.Is(err, model.ErrJobNotFound) {
		return model.ErrJobBusy
	}
	return err
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE jobs SET status = $1, updated_at = now() WHERE job_uid = $2`

	return execOne(p.DB.Master.ExecContext(ctx, query, newStat, id))
}

func (p PostgresRepo) SaveResult(ctx context.Context, j *model.Job) error {
	query := `UPDATE jobs SET status = $1, updated_at = $2, result_key = $3, err_msg = $4 WHERE job_uid = $5`

	return execOne(p.DB.Master.ExecContext(ctx, query, j.Status, j.UpdatedAt, j.ResultKey, j.ErrMsg, j.UID))
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := fmt.Sprintf(`SELECT job_uid
	FROM jobs
	WHERE status IN ($1, $2)
	AND updated_at < now() - interval '%s'
	LIMIT $3`, staleAfter)

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("Error while closing *sql.Rows after scanning")
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}

// execOne maps "nothing updated" to model.ErrJobNotFound
func execOne(res sql.Result, err error) error {
	if err != nil {
		return err // 500
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrJobNotFound // 404
	}
	return nil
}
