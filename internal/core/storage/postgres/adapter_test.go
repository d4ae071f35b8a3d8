package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
)

func TestAdapter_CurrentPosition(t *testing.T) {
	asOf := v1.NewDate(2025, time.November, 20)

	tests := []struct {
		name       string
		mockResult func(mock sqlmock.Sqlmock)
		wantPos    string
		wantOK     bool
		wantErr    bool
	}{
		{
			name: "covering interval found",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryCurrentPosition)).
					WithArgs("emp-1", asOf).
					WillReturnRows(sqlmock.NewRows([]string{"position_name"}).AddRow("Head Cook"))
			},
			wantPos: "Head Cook",
			wantOK:  true,
		},
		{
			name: "no covering interval is ok=false not error",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryCurrentPosition)).
					WithArgs("emp-1", asOf).
					WillReturnRows(sqlmock.NewRows([]string{"position_name"}))
			},
			wantOK: false,
		},
		{
			name: "storage failure propagates",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryCurrentPosition)).
					WithArgs("emp-1", asOf).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.mockResult(mock)

			pos, ok, err := adapter.CurrentPosition(context.Background(), "emp-1", asOf)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.wantOK, ok)
				require.Equal(t, tc.wantPos, pos)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_HistoryForPeriodBatch(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	from := v1.NewDate(2025, time.November, 1)
	to := v1.NewDate(2025, time.November, 30)

	mock.ExpectQuery(regexp.QuoteMeta(queryIntervalsForPeriod)).
		WithArgs(pq.Array([]string{"emp-1", "emp-2"}), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "position_name", "valid_from", "valid_to"}).
			AddRow("emp-1", "Cook", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)).
			AddRow("emp-1", "Head Cook", time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), nil).
			AddRow("emp-2", "Waiter", time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC), nil),
		).RowsWillBeClosed()

	byEmployee, err := adapter.HistoryForPeriodBatch(context.Background(), []string{"emp-1", "emp-2"}, from, to)
	require.NoError(t, err)
	require.Len(t, byEmployee, 2)

	require.Equal(t, []v1.PositionPeriod{
		{PositionName: "Cook", ValidFrom: from, ValidTo: v1.NewDate(2025, time.November, 14)},
		{PositionName: "Head Cook", ValidFrom: v1.NewDate(2025, time.November, 15), ValidTo: to},
	}, byEmployee["emp-1"])

	require.Equal(t, []v1.PositionPeriod{
		{PositionName: "Waiter", ValidFrom: v1.NewDate(2025, time.November, 10), ValidTo: to},
	}, byEmployee["emp-2"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_HistoryForPeriodBatch_EmptyInputSkipsQuery(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	byEmployee, err := adapter.HistoryForPeriodBatch(context.Background(),
		nil, v1.NewDate(2025, time.November, 1), v1.NewDate(2025, time.November, 30))
	require.NoError(t, err)
	require.Empty(t, byEmployee)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_HistoryForPeriod_DelegatesToBatch(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	from := v1.NewDate(2025, time.November, 1)
	to := v1.NewDate(2025, time.November, 30)

	mock.ExpectQuery(regexp.QuoteMeta(queryIntervalsForPeriod)).
		WithArgs(pq.Array([]string{"emp-1"}), from, to).
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "position_name", "valid_from", "valid_to"}).
			AddRow("emp-1", "Cook", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), nil),
		).RowsWillBeClosed()

	periods, err := adapter.HistoryForPeriod(context.Background(), "emp-1", from, to)
	require.NoError(t, err)
	require.Equal(t, []v1.PositionPeriod{
		{PositionName: "Cook", ValidFrom: from, ValidTo: to},
	}, periods)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SetPosition_TruncatesAndInserts(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	effective := v1.NewDate(2025, time.November, 15)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectForUpdate)).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows(intervalRowColumns()).
			AddRow("iv-1", "emp-1", "Alice Cooper", "Cook", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), nil),
		).RowsWillBeClosed()
	mock.ExpectExec(regexp.QuoteMeta(queryTruncateInterval)).
		WithArgs("iv-1", v1.NewDate(2025, time.November, 14)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryInsertInterval)).
		WithArgs(sqlmock.AnyArg(), "emp-1", "Alice Cooper", "Head Cook", effective, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := adapter.SetPosition(context.Background(), "emp-1", "Alice Cooper", "Head Cook", effective)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SetPosition_DeletesSupersededIntervals(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	// Effective date before the open interval's whole span: the row is
	// hard-deleted, not truncated.
	effective := v1.NewDate(2025, time.November, 10)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectForUpdate)).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows(intervalRowColumns()).
			AddRow("iv-1", "emp-1", "Alice Cooper", "Cook", time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), nil),
		).RowsWillBeClosed()
	mock.ExpectExec(regexp.QuoteMeta(queryDeleteIntervals)).
		WithArgs(pq.Array([]string{"iv-1"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryInsertInterval)).
		WithArgs(sqlmock.AnyArg(), "emp-1", "Alice Cooper", "Head Cook", effective, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := adapter.SetPosition(context.Background(), "emp-1", "Alice Cooper", "Head Cook", effective)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SetPosition_FirstIntervalJustInserts(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	effective := v1.NewDate(2020, time.January, 1)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectForUpdate)).
		WithArgs("emp-new").
		WillReturnRows(sqlmock.NewRows(intervalRowColumns())).
		RowsWillBeClosed()
	mock.ExpectExec(regexp.QuoteMeta(queryInsertInterval)).
		WithArgs(sqlmock.AnyArg(), "emp-new", "Bob Kitchen", "Dishwasher", effective, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := adapter.SetPosition(context.Background(), "emp-new", "Bob Kitchen", "Dishwasher", effective)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SetPosition_RollsBackOnInsertFailure(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	effective := v1.NewDate(2025, time.November, 15)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(querySelectForUpdate)).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows(intervalRowColumns()).
			AddRow("iv-1", "emp-1", "Alice Cooper", "Cook", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), nil),
		).RowsWillBeClosed()
	mock.ExpectExec(regexp.QuoteMeta(queryTruncateInterval)).
		WithArgs("iv-1", v1.NewDate(2025, time.November, 14)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryInsertInterval)).
		WithArgs(sqlmock.AnyArg(), "emp-1", "Alice Cooper", "Head Cook", effective, sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := adapter.SetPosition(context.Background(), "emp-1", "Alice Cooper", "Head Cook", effective)
	require.Error(t, err)
	require.ErrorContains(t, err, "insert interval")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ListActiveEmployees(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	asOf := v1.NewDate(2025, time.November, 20)

	mock.ExpectQuery(regexp.QuoteMeta(queryListActive)).
		WithArgs(asOf).
		WillReturnRows(sqlmock.NewRows([]string{"employee_id", "employee_name", "position_name", "valid_from"}).
			AddRow("emp-1", "Alice Cooper", "Head Cook", time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)).
			AddRow("emp-2", "Bob Kitchen", "Dishwasher", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		).RowsWillBeClosed()

	employees, err := adapter.ListActiveEmployees(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, employees, 2)
	require.Equal(t, v1.ActiveEmployee{
		EmployeeID: "emp-1",
		Name:       "Alice Cooper",
		Position:   "Head Cook",
		Since:      v1.NewDate(2025, time.November, 15),
	}, employees["emp-1"])
	require.Equal(t, v1.NewDate(2020, time.January, 1), employees["emp-2"].Since)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ListIntervals(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryListIntervals)).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows(intervalRowColumns()).
			AddRow("iv-1", "emp-1", "Alice Cooper", "Cook", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)).
			AddRow("iv-2", "emp-1", "Alice Cooper", "Head Cook", time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC), nil),
		).RowsWillBeClosed()

	intervals, err := adapter.ListIntervals(context.Background(), "emp-1")
	require.NoError(t, err)
	require.Len(t, intervals, 2)
	require.Equal(t, "Cook", intervals[0].PositionName)
	require.NotNil(t, intervals[0].ValidTo)
	require.Equal(t, v1.NewDate(2025, time.November, 14), *intervals[0].ValidTo)
	require.True(t, intervals[1].Open())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbCloseErr := errors.New("db close failed")

	mock.ExpectPrepare(regexp.QuoteMeta(queryCurrentPosition)).WillBeClosed()
	stmtCurrent, err := db.Prepare(queryCurrentPosition)
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryIntervalsForPeriod)).WillBeClosed()
	stmtPeriod, err := db.Prepare(queryIntervalsForPeriod)
	require.NoError(t, err)

	mock.ExpectClose().WillReturnError(dbCloseErr)

	adapter := &Adapter{
		db:                  db,
		stmtCurrentPosition: stmtCurrent,
		stmtPeriodIntervals: stmtPeriod,
	}

	err = adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:                  db,
		stmtCurrentPosition: mustPrepareStmt(t, db, mock, queryCurrentPosition),
		stmtPeriodIntervals: mustPrepareStmt(t, db, mock, queryIntervalsForPeriod),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}

func intervalRowColumns() []string {
	return []string{
		"id",
		"employee_id",
		"employee_name",
		"position_name",
		"valid_from",
		"valid_to",
	}
}
