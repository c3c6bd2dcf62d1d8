package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/repository"
)

type scenarioRepo struct {
	db *sqlx.DB
}

// scenarioRow is the jsonb-backed row shape for the scenarios table.
type scenarioRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	URL              string         `db:"url"`
	Viewport         sql.NullString `db:"viewport"`
	Steps            string         `db:"steps"`
	SetupSteps       sql.NullString `db:"setup_steps"`
	TeardownSteps    sql.NullString `db:"teardown_steps"`
	InitialVariables sql.NullString `db:"initial_variables"`
	ASTSchemaVersion int            `db:"ast_schema_version"`
	Tags             sql.NullString `db:"tags"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func marshalJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func toRow(s scenario.Scenario) scenarioRow {
	return scenarioRow{
		ID:               s.ID,
		Name:             s.Name,
		URL:              s.URL,
		Viewport:         nullableJSON(s.Viewport),
		Steps:            marshalJSON(s.Steps),
		SetupSteps:       nullableJSON(s.SetupSteps),
		TeardownSteps:    nullableJSON(s.TeardownSteps),
		InitialVariables: nullableJSON(s.InitialVariables),
		ASTSchemaVersion: s.ASTSchemaVersion,
		Tags:             nullableJSON(s.Tags),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func nullableJSON(v interface{}) sql.NullString {
	s := marshalJSON(v)
	return sql.NullString{String: s, Valid: s != "" && s != "null"}
}

func fromRow(r scenarioRow) (scenario.Scenario, error) {
	s := scenario.Scenario{
		ID:               r.ID,
		Name:             r.Name,
		URL:              r.URL,
		ASTSchemaVersion: r.ASTSchemaVersion,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Steps), &s.Steps); err != nil {
		return s, fmt.Errorf("unmarshal steps: %w", err)
	}
	if r.Viewport.Valid {
		if err := json.Unmarshal([]byte(r.Viewport.String), &s.Viewport); err != nil {
			return s, fmt.Errorf("unmarshal viewport: %w", err)
		}
	}
	if r.SetupSteps.Valid {
		_ = json.Unmarshal([]byte(r.SetupSteps.String), &s.SetupSteps)
	}
	if r.TeardownSteps.Valid {
		_ = json.Unmarshal([]byte(r.TeardownSteps.String), &s.TeardownSteps)
	}
	if r.InitialVariables.Valid {
		_ = json.Unmarshal([]byte(r.InitialVariables.String), &s.InitialVariables)
	}
	if r.Tags.Valid {
		_ = json.Unmarshal([]byte(r.Tags.String), &s.Tags)
	}
	return s, nil
}

func (r *scenarioRepo) Create(ctx context.Context, s scenario.Scenario) (scenario.Scenario, error) {
	if s.ID == "" {
		s.ID = newID("scenario")
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	row := toRow(s)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO scenarios (id, name, url, viewport, steps, setup_steps, teardown_steps, initial_variables, ast_schema_version, tags, created_at, updated_at)
		VALUES (:id, :name, :url, :viewport, :steps, :setup_steps, :teardown_steps, :initial_variables, :ast_schema_version, :tags, :created_at, :updated_at)
	`, row)
	if err != nil {
		return scenario.Scenario{}, apperrors.Internal("insert scenario", err)
	}
	return s, nil
}

func (r *scenarioRepo) GetByID(ctx context.Context, id string) (scenario.Scenario, error) {
	var row scenarioRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM scenarios WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return scenario.Scenario{}, apperrors.NotFound("scenario", id)
	}
	if err != nil {
		return scenario.Scenario{}, apperrors.Internal("select scenario", err)
	}
	return fromRow(row)
}

func (r *scenarioRepo) List(ctx context.Context, p repository.Page) ([]scenario.Scenario, error) {
	limit, offset := pageBounds(p)
	var rows []scenarioRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM scenarios ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("list scenarios", err)
	}
	out := make([]scenario.Scenario, 0, len(rows))
	for _, row := range rows {
		s, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *scenarioRepo) Update(ctx context.Context, id string, patch scenario.Scenario) (scenario.Scenario, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return scenario.Scenario{}, err
	}
	patch.ID = existing.ID
	patch.CreatedAt = existing.CreatedAt
	patch.UpdatedAt = time.Now().UTC()

	row := toRow(patch)
	_, err = r.db.NamedExecContext(ctx, `
		UPDATE scenarios SET name=:name, url=:url, viewport=:viewport, steps=:steps,
			setup_steps=:setup_steps, teardown_steps=:teardown_steps, initial_variables=:initial_variables,
			ast_schema_version=:ast_schema_version, tags=:tags, updated_at=:updated_at
		WHERE id=:id
	`, row)
	if err != nil {
		return scenario.Scenario{}, apperrors.Internal("update scenario", err)
	}
	return patch, nil
}

func (r *scenarioRepo) Delete(ctx context.Context, id string) error {
	// Deletion cascades to execution results (spec.md §3 "Ownership &
	// lifetimes"); the schema enforces this with ON DELETE CASCADE.
	res, err := r.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("delete scenario", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("scenario", id)
	}
	return nil
}

type scenarioResultRow struct {
	ID          string    `db:"id"`
	ScenarioID  string    `db:"scenario_id"`
	Status      string    `db:"status"`
	Summary     string    `db:"summary"`
	StepResults string    `db:"step_results"`
	APICalls    sql.NullString `db:"api_calls"`
	Environment sql.NullString `db:"environment"`
	StartedAt   time.Time `db:"started_at"`
	ExecutedAt  time.Time `db:"executed_at"`
}

func (r *scenarioRepo) AddExecutionResult(ctx context.Context, result scenario.ScenarioExecutionResult) error {
	row := scenarioResultRow{
		ID:          newID("result"),
		ScenarioID:  result.ScenarioID,
		Status:      string(result.Status),
		Summary:     marshalJSON(result.Summary),
		StepResults: marshalJSON(result.Steps),
		APICalls:    nullableJSON(result.APICalls),
		Environment: nullableJSON(result.Environment),
		StartedAt:   result.StartedAt,
		ExecutedAt:  result.ExecutedAt,
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO scenario_execution_results (id, scenario_id, status, summary, step_results, api_calls, environment, started_at, executed_at)
		VALUES (:id, :scenario_id, :status, :summary, :step_results, :api_calls, :environment, :started_at, :executed_at)
	`, row)
	if err != nil {
		return apperrors.Internal("insert scenario execution result", err)
	}
	return nil
}

func (r *scenarioRepo) ListExecutionResults(ctx context.Context, scenarioID string, p repository.Page) ([]scenario.ScenarioExecutionResult, error) {
	limit, offset := pageBounds(p)
	var rows []scenarioResultRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM scenario_execution_results WHERE scenario_id = $1 ORDER BY executed_at DESC LIMIT $2 OFFSET $3
	`, scenarioID, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("list scenario execution results", err)
	}
	out := make([]scenario.ScenarioExecutionResult, 0, len(rows))
	for _, row := range rows {
		res := scenario.ScenarioExecutionResult{
			ScenarioID: row.ScenarioID,
			Status:     scenario.Status(row.Status),
			StartedAt:  row.StartedAt,
			ExecutedAt: row.ExecutedAt,
		}
		_ = json.Unmarshal([]byte(row.Summary), &res.Summary)
		_ = json.Unmarshal([]byte(row.StepResults), &res.Steps)
		if row.APICalls.Valid {
			_ = json.Unmarshal([]byte(row.APICalls.String), &res.APICalls)
		}
		if row.Environment.Valid {
			_ = json.Unmarshal([]byte(row.Environment.String), &res.Environment)
		}
		out = append(out, res)
	}
	return out, nil
}

func pageBounds(p repository.Page) (limit, offset int) {
	limit = p.Limit
	if limit <= 0 {
		limit = 50
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
