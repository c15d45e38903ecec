package database

import (
	"database/sql"
	"time"

	"groupwarden/entity"
)

func scanChallenge(row interface{ Scan(...interface{}) error }) (*entity.Challenge, error) {
	var ch entity.Challenge
	var options, userAnswer sql.NullString
	var solvedAt sql.NullTime
	err := row.Scan(
		&ch.ID,
		&ch.UserID,
		&ch.ChatID,
		&ch.Question,
		&ch.CorrectAnswer,
		&options,
		&ch.Image,
		&userAnswer,
		&ch.IsSolved,
		&ch.Attempts,
		&ch.PromptMsgID,
		&ch.ImageMsgID,
		&ch.ChoiceMsgID,
		&ch.CreatedAt,
		&solvedAt,
		&ch.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ch.Options = options.String
	ch.UserAnswer = userAnswer.String
	if solvedAt.Valid {
		t := solvedAt.Time
		ch.SolvedAt = &t
	}
	return &ch, nil
}

func (s *MySql) ChallengeById(id int64) (*entity.Challenge, error) {
	stmt, err := s.stmtSelectChallenge()
	if err != nil {
		return nil, err
	}
	return scanChallenge(stmt.QueryRow(id))
}

// ActiveChallengeByUser returns the newest unsolved, unexpired challenge.
func (s *MySql) ActiveChallengeByUser(userId int64, now time.Time) (*entity.Challenge, error) {
	stmt, err := s.stmtSelectActiveChallenge()
	if err != nil {
		return nil, err
	}
	return scanChallenge(stmt.QueryRow(userId, now))
}

func (s *MySql) CreateChallenge(ch *entity.Challenge) (int64, error) {
	stmt, err := s.stmtInsertChallenge()
	if err != nil {
		return 0, err
	}
	res, err := stmt.Exec(
		ch.UserID,
		ch.ChatID,
		ch.Question,
		ch.CorrectAnswer,
		nullStr(ch.Options),
		ch.Image,
		ch.ExpiresAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteUnsolvedChallenges enforces at most one live challenge per user.
func (s *MySql) DeleteUnsolvedChallenges(userId int64) error {
	stmt, err := s.stmtDeleteUnsolvedChallenges()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(userId)
	return err
}

// SaveChallengeAttempt persists the single grading mutation.
func (s *MySql) SaveChallengeAttempt(ch *entity.Challenge) error {
	stmt, err := s.stmtUpdateChallengeAttempt()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(ch.Attempts, nullStr(ch.UserAnswer), ch.IsSolved, nullTime(ch.SolvedAt), ch.ID)
	return err
}

// SetChallengeMessages records the sent prompt ids so cleanup survives a
// process restart.
func (s *MySql) SetChallengeMessages(id, promptMsgId, imageMsgId, choiceMsgId int64) error {
	stmt, err := s.stmtUpdateChallengeMessages()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(promptMsgId, imageMsgId, choiceMsgId, id)
	return err
}

func (s *MySql) DeleteExpiredChallenges(now time.Time) (int64, error) {
	stmt, err := s.stmtDeleteExpiredChallenges()
	if err != nil {
		return 0, err
	}
	res, err := stmt.Exec(now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
