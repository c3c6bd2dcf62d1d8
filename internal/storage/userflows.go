package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/domain/flowgraph"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/repository"
)

type userFlowRepo struct {
	db *sqlx.DB
}

type userFlowRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Description      sql.NullString `db:"description"`
	Nodes            string         `db:"nodes"`
	Edges            string         `db:"edges"`
	InitialVariables sql.NullString `db:"initial_variables"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func flowFromRow(r userFlowRow) (flowgraph.UserFlow, error) {
	f := flowgraph.UserFlow{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if !jsonUnmarshalOK(r.Nodes, &f.Nodes) {
		return f, apperrors.Internal("unmarshal flow nodes", errors.New("invalid nodes json"))
	}
	if !jsonUnmarshalOK(r.Edges, &f.Edges) {
		return f, apperrors.Internal("unmarshal flow edges", errors.New("invalid edges json"))
	}
	if r.InitialVariables.Valid {
		_ = jsonUnmarshalOK(r.InitialVariables.String, &f.InitialVariables)
	}
	return f, nil
}

func flowToRow(f flowgraph.UserFlow) userFlowRow {
	return userFlowRow{
		ID:               f.ID,
		Name:             f.Name,
		Description:      sql.NullString{String: f.Description, Valid: f.Description != ""},
		Nodes:            marshalJSON(f.Nodes),
		Edges:            marshalJSON(f.Edges),
		InitialVariables: nullableJSON(f.InitialVariables),
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func (r *userFlowRepo) Create(ctx context.Context, f flowgraph.UserFlow) (flowgraph.UserFlow, error) {
	if f.ID == "" {
		f.ID = newID("flow")
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	row := flowToRow(f)
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO user_flows (id, name, description, nodes, edges, initial_variables, created_at, updated_at)
		VALUES (:id, :name, :description, :nodes, :edges, :initial_variables, :created_at, :updated_at)
	`, row)
	if err != nil {
		return flowgraph.UserFlow{}, apperrors.Internal("insert user flow", err)
	}
	return f, nil
}

func (r *userFlowRepo) GetByID(ctx context.Context, id string) (flowgraph.UserFlow, error) {
	var row userFlowRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM user_flows WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return flowgraph.UserFlow{}, apperrors.NotFound("flow", id)
	}
	if err != nil {
		return flowgraph.UserFlow{}, apperrors.Internal("select user flow", err)
	}
	return flowFromRow(row)
}

func (r *userFlowRepo) List(ctx context.Context, p repository.Page) ([]flowgraph.UserFlow, error) {
	limit, offset := pageBounds(p)
	var rows []userFlowRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM user_flows ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("list user flows", err)
	}
	out := make([]flowgraph.UserFlow, 0, len(rows))
	for _, row := range rows {
		f, err := flowFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *userFlowRepo) Update(ctx context.Context, id string, patch flowgraph.UserFlow) (flowgraph.UserFlow, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return flowgraph.UserFlow{}, err
	}
	patch.ID = existing.ID
	patch.CreatedAt = existing.CreatedAt
	patch.UpdatedAt = time.Now().UTC()

	row := flowToRow(patch)
	_, err = r.db.NamedExecContext(ctx, `
		UPDATE user_flows SET name=:name, description=:description, nodes=:nodes, edges=:edges,
			initial_variables=:initial_variables, updated_at=:updated_at
		WHERE id=:id
	`, row)
	if err != nil {
		return flowgraph.UserFlow{}, apperrors.Internal("update user flow", err)
	}
	return patch, nil
}

func (r *userFlowRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_flows WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("delete user flow", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("flow", id)
	}
	return nil
}

type flowExecutionResultRow struct {
	ID           string    `db:"id"`
	FlowID       string    `db:"flow_id"`
	Status       string    `db:"status"`
	NodeResults  string    `db:"node_results"`
	TotalNodes   int       `db:"total_nodes"`
	PassedNodes  int       `db:"passed_nodes"`
	FailedNodes  int       `db:"failed_nodes"`
	SkippedNodes int       `db:"skipped_nodes"`
	TotalSteps   int       `db:"total_steps"`
	PassedSteps  int       `db:"passed_steps"`
	FailedSteps  int       `db:"failed_steps"`
	SkippedSteps int       `db:"skipped_steps"`
	StartedAt    time.Time `db:"started_at"`
	EndedAt      time.Time `db:"ended_at"`
}

func (r *userFlowRepo) AddExecutionResult(ctx context.Context, result execution.FlowExecutionResult) error {
	row := flowExecutionResultRow{
		ID:           newID("flowresult"),
		FlowID:       result.FlowID,
		Status:       string(result.Status),
		NodeResults:  marshalJSON(result.NodeResults),
		TotalNodes:   result.TotalNodes,
		PassedNodes:  result.PassedNodes,
		FailedNodes:  result.FailedNodes,
		SkippedNodes: result.SkippedNodes,
		TotalSteps:   result.TotalSteps,
		PassedSteps:  result.PassedSteps,
		FailedSteps:  result.FailedSteps,
		SkippedSteps: result.SkippedSteps,
		StartedAt:    result.StartedAt,
		EndedAt:      result.EndedAt,
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO flow_execution_results (id, flow_id, status, node_results, total_nodes, passed_nodes, failed_nodes,
			skipped_nodes, total_steps, passed_steps, failed_steps, skipped_steps, started_at, ended_at)
		VALUES (:id, :flow_id, :status, :node_results, :total_nodes, :passed_nodes, :failed_nodes,
			:skipped_nodes, :total_steps, :passed_steps, :failed_steps, :skipped_steps, :started_at, :ended_at)
	`, row)
	if err != nil {
		return apperrors.Internal("insert flow execution result", err)
	}
	return nil
}

func (r *userFlowRepo) ListExecutionResults(ctx context.Context, flowID string, p repository.Page) ([]execution.FlowExecutionResult, error) {
	limit, offset := pageBounds(p)
	var rows []flowExecutionResultRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM flow_execution_results WHERE flow_id = $1 ORDER BY ended_at DESC LIMIT $2 OFFSET $3
	`, flowID, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("list flow execution results", err)
	}
	out := make([]execution.FlowExecutionResult, 0, len(rows))
	for _, row := range rows {
		res := execution.FlowExecutionResult{
			FlowID:       row.FlowID,
			Status:       execution.Status(row.Status),
			TotalNodes:   row.TotalNodes,
			PassedNodes:  row.PassedNodes,
			FailedNodes:  row.FailedNodes,
			SkippedNodes: row.SkippedNodes,
			TotalSteps:   row.TotalSteps,
			PassedSteps:  row.PassedSteps,
			FailedSteps:  row.FailedSteps,
			SkippedSteps: row.SkippedSteps,
			StartedAt:    row.StartedAt,
			EndedAt:      row.EndedAt,
		}
		_ = jsonUnmarshalOK(row.NodeResults, &res.NodeResults)
		out = append(out, res)
	}
	return out, nil
}
