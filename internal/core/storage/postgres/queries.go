package postgres

// SQL statements for the position_intervals table. Reads that run on every
// payroll calculation are prepared at startup; write statements execute
// inside per-employee transactions and are prepared per transaction.
const (
	queryCurrentPosition = `
		SELECT position_name
		FROM position_intervals
		WHERE employee_id = $1
		  AND valid_from <= $2
		  AND (valid_to >= $2 OR valid_to IS NULL)
		ORDER BY valid_from DESC
		LIMIT 1
	`

	queryIntervalsForPeriod = `
		SELECT employee_id, position_name, valid_from, valid_to
		FROM position_intervals
		WHERE employee_id = ANY($1)
		  AND valid_from <= $3
		  AND (valid_to >= $2 OR valid_to IS NULL)
		ORDER BY employee_id, valid_from
	`

	queryListIntervals = `
		SELECT id, employee_id, employee_name, position_name, valid_from, valid_to
		FROM position_intervals
		WHERE employee_id = $1
		ORDER BY valid_from
	`

	queryListActive = `
		SELECT employee_id, employee_name, position_name, valid_from
		FROM position_intervals
		WHERE valid_to >= $1 OR valid_to IS NULL
	`

	// querySelectForUpdate locks the employee's whole timeline before the
	// read-modify-write sequence. A concurrent writer for the same employee
	// blocks here until this transaction commits, which closes the
	// lost-update window between the monitor and manual corrections.
	querySelectForUpdate = `
		SELECT id, employee_id, employee_name, position_name, valid_from, valid_to
		FROM position_intervals
		WHERE employee_id = $1
		ORDER BY valid_from
		FOR UPDATE
	`

	queryDeleteIntervals = `
		DELETE FROM position_intervals
		WHERE id = ANY($1)
	`

	queryTruncateInterval = `
		UPDATE position_intervals
		SET valid_to = $2
		WHERE id = $1
	`

	queryInsertInterval = `
		INSERT INTO position_intervals
			(id, employee_id, employee_name, position_name, valid_from, valid_to, created_at)
		VALUES ($1, $2, $3, $4, $5, NULL, $6)
	`
)
