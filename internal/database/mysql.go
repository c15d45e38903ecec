package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"groupwarden/entity"
	"groupwarden/internal/config"
)

// MySql is the single durable store behind every service. One short
// statement per logical operation; the prepared-statement cache is
// shared and guarded by mu.
type MySql struct {
	db         *sql.DB
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.Database.UserName, conf.Database.Password, conf.Database.HostName, conf.Database.Port, conf.Database.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		statements: make(map[string]*sql.Stmt),
	}

	if err = sdb.createTables(); err != nil {
		return nil, err
	}

	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

// --- users ---

func (s *MySql) UserById(userId int64) (*entity.User, error) {
	stmt, err := s.stmtSelectUser()
	if err != nil {
		return nil, err
	}
	var user entity.User
	var username, firstName, lastName sql.NullString
	var invitedBy sql.NullInt64
	err = stmt.QueryRow(userId).Scan(
		&user.UserID,
		&username,
		&firstName,
		&lastName,
		&user.LanguageCode,
		&user.IsVerified,
		&invitedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.Username = username.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.InvitedByUserID = invitedBy.Int64
	return &user, nil
}

// EnsureUser creates the row if missing and refreshes display names.
func (s *MySql) EnsureUser(userId int64, username, firstName, lastName string) error {
	stmt, err := s.stmtUpsertUser()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(userId, nullStr(username), nullStr(firstName), nullStr(lastName),
		nullStr(username), nullStr(firstName), nullStr(lastName))
	return err
}

func (s *MySql) SetUserLanguage(userId int64, code string) error {
	if err := s.EnsureUser(userId, "", "", ""); err != nil {
		return err
	}
	stmt, err := s.stmtUpdateUserLanguage()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(code, userId)
	return err
}

func (s *MySql) UserLanguage(userId int64) (string, error) {
	stmt, err := s.stmtSelectUserLanguage()
	if err != nil {
		return "", err
	}
	var code string
	err = stmt.QueryRow(userId).Scan(&code)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *MySql) MarkUserVerified(userId int64) error {
	if err := s.EnsureUser(userId, "", "", ""); err != nil {
		return err
	}
	stmt, err := s.stmtUpdateUserVerified()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(userId)
	return err
}

func (s *MySql) IsUserVerified(userId int64) (bool, error) {
	stmt, err := s.stmtSelectUserVerified()
	if err != nil {
		return false, err
	}
	var verified bool
	err = stmt.QueryRow(userId).Scan(&verified)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return verified, nil
}

func (s *MySql) SetInvitedBy(userId, inviterId int64) error {
	if err := s.EnsureUser(userId, "", "", ""); err != nil {
		return err
	}
	stmt, err := s.stmtUpdateUserInvitedBy()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(inviterId, userId)
	return err
}

// --- languages ---

func (s *MySql) UpsertLanguage(lang *entity.Language, translations string) error {
	stmt, err := s.stmtUpsertLanguage()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(lang.Code, lang.Name, lang.Country, translations, lang.IsActive,
		lang.Name, lang.Country, translations, lang.IsActive)
	return err
}

// --- join events ---

// RecordJoinEvent inserts the (chat, user, bucket) de-dup row and
// reports whether it was new. Rows below oldestLive are trimmed on the
// same call so the table stays a rolling 5-minute window.
func (s *MySql) RecordJoinEvent(chatId, userId, bucket, oldestLive int64) (bool, error) {
	ins, err := s.stmtInsertJoinEvent()
	if err != nil {
		return false, err
	}
	res, err := ins.Exec(chatId, userId, bucket)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	trim, err := s.stmtTrimJoinEvents()
	if err != nil {
		return false, err
	}
	_, _ = trim.Exec(oldestLive)

	return affected > 0, nil
}

func nullStr(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
