package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenarioflow/control-plane/domain/scenario"
	"github.com/scenarioflow/control-plane/internal/apperrors"
	"github.com/scenarioflow/control-plane/internal/repository"
)

func newMockScenarios(t *testing.T) (repository.Scenarios, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	pg := NewWithDB(db)
	return pg.Scenarios(), mock
}

func TestScenarios_CreateInsertsRow(t *testing.T) {
	repo, mock := newMockScenarios(t)
	mock.ExpectExec(`INSERT INTO scenarios`).WillReturnResult(sqlmock.NewResult(1, 1))

	s := scenario.Scenario{
		ID:    "scn-1",
		Name:  "checkout",
		URL:   "https://example.test",
		Steps: []scenario.Step{{ID: "step-1", Kind: scenario.StepClick}},
	}
	out, err := repo.Create(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "scn-1", out.ID)
	assert.False(t, out.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarios_GetByIDReturnsNotFoundOnNoRows(t *testing.T) {
	repo, mock := newMockScenarios(t)
	mock.ExpectQuery(`SELECT \* FROM scenarios WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarios_GetByIDUnmarshalsStepsFromRow(t *testing.T) {
	repo, mock := newMockScenarios(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "name", "url", "viewport", "steps", "setup_steps", "teardown_steps",
		"initial_variables", "ast_schema_version", "tags", "created_at", "updated_at",
	}).AddRow(
		"scn-1", "checkout", "https://example.test", nil,
		`[{"id":"step-1","kind":"click"}]`, nil, nil, nil, 1, nil, now, now,
	)
	mock.ExpectQuery(`SELECT \* FROM scenarios WHERE id = \$1`).WithArgs("scn-1").WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "scn-1")
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, scenario.StepClick, got.Steps[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarios_DeleteReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock := newMockScenarios(t)
	mock.ExpectExec(`DELETE FROM scenarios WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScenarios_DeleteSucceedsWhenRowAffected(t *testing.T) {
	repo, mock := newMockScenarios(t)
	mock.ExpectExec(`DELETE FROM scenarios WHERE id = \$1`).
		WithArgs("scn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "scn-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
