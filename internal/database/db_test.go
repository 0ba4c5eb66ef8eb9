package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/TrendScreener/internal/report"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return Wrap(sqlx.NewDb(mockDB, "postgres"), 0), mock
}

var table = report.Table{
	Columns: []string{"symbol", "close"},
	Rows:    [][]string{{"SPY", "512.30"}, {"AAPL", "189.90"}},
}

func TestPersist(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM report_rows").
		WithArgs("17-05-2024").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO report_rows").
		WithArgs("17-05-2024", 0, "SPY", []byte(`{"close":"512.30","symbol":"SPY"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO report_rows").
		WithArgs("17-05-2024", 1, "AAPL", []byte(`{"close":"189.90","symbol":"AAPL"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	locator, err := db.Persist(context.Background(), "17-05-2024", table)
	require.NoError(t, err)
	assert.Equal(t, "postgres:report_rows/17-05-2024", locator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM report_rows").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO report_rows").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := db.Persist(context.Background(), "17-05-2024", table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert SPY")
	assert.NoError(t, mock.ExpectationsWereMet())
}
