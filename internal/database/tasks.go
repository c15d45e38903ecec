package database

import (
	"database/sql"

	"groupwarden/entity"
)

func scanTask(row interface{ Scan(...interface{}) error }) (*entity.ScheduledTask, error) {
	var t entity.ScheduledTask
	err := row.Scan(
		&t.ID,
		&t.Kind,
		&t.Payload,
		&t.RunAt,
		&t.Cancelled,
		&t.Completed,
		&t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *MySql) CreateTask(t *entity.ScheduledTask) error {
	stmt, err := s.stmtInsertTask()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(t.ID, t.Kind, t.Payload, t.RunAt)
	return err
}

func (s *MySql) TaskById(id string) (*entity.ScheduledTask, error) {
	stmt, err := s.stmtSelectTask()
	if err != nil {
		return nil, err
	}
	return scanTask(stmt.QueryRow(id))
}

func (s *MySql) CancelTask(id string) error {
	stmt, err := s.stmtCancelTask()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(id)
	return err
}

func (s *MySql) CompleteTask(id string) error {
	stmt, err := s.stmtCompleteTask()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(id)
	return err
}

// PendingTasks returns rows that were neither cancelled nor completed,
// ordered by run time; used to re-arm timers after a restart.
func (s *MySql) PendingTasks() ([]*entity.ScheduledTask, error) {
	stmt, err := s.stmtSelectPendingTasks()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*entity.ScheduledTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
