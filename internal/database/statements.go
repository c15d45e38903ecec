package database

import (
	"database/sql"
	"fmt"
)

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

// --- users ---

func (s *MySql) stmtSelectUser() (*sql.Stmt, error) {
	query := `SELECT user_id, username, first_name, last_name, language_code,
                   is_verified, invited_by_user_id, created_at, updated_at
                   FROM users WHERE user_id = ?`
	return s.prepareStmt("selectUser", query)
}

func (s *MySql) stmtUpsertUser() (*sql.Stmt, error) {
	query := `INSERT INTO users (user_id, username, first_name, last_name)
                   VALUES (?, ?, ?, ?)
                   ON DUPLICATE KEY UPDATE
                   username = COALESCE(?, username),
                   first_name = COALESCE(?, first_name),
                   last_name = COALESCE(?, last_name)`
	return s.prepareStmt("upsertUser", query)
}

func (s *MySql) stmtUpdateUserLanguage() (*sql.Stmt, error) {
	query := `UPDATE users SET language_code = ? WHERE user_id = ?`
	return s.prepareStmt("updateUserLanguage", query)
}

func (s *MySql) stmtSelectUserLanguage() (*sql.Stmt, error) {
	query := `SELECT language_code FROM users WHERE user_id = ?`
	return s.prepareStmt("selectUserLanguage", query)
}

func (s *MySql) stmtUpdateUserVerified() (*sql.Stmt, error) {
	query := `UPDATE users SET is_verified = 1 WHERE user_id = ?`
	return s.prepareStmt("updateUserVerified", query)
}

func (s *MySql) stmtSelectUserVerified() (*sql.Stmt, error) {
	query := `SELECT is_verified FROM users WHERE user_id = ?`
	return s.prepareStmt("selectUserVerified", query)
}

func (s *MySql) stmtUpdateUserInvitedBy() (*sql.Stmt, error) {
	query := `UPDATE users SET invited_by_user_id = ? WHERE user_id = ?`
	return s.prepareStmt("updateUserInvitedBy", query)
}

// --- languages ---

func (s *MySql) stmtUpsertLanguage() (*sql.Stmt, error) {
	query := `INSERT INTO languages (code, name, country, translations, is_active)
                   VALUES (?, ?, ?, ?, ?)
                   ON DUPLICATE KEY UPDATE
                   name = ?, country = ?, translations = ?, is_active = ?`
	return s.prepareStmt("upsertLanguage", query)
}

// --- join events ---

func (s *MySql) stmtInsertJoinEvent() (*sql.Stmt, error) {
	query := `INSERT IGNORE INTO join_events (chat_id, user_id, bucket)
                   VALUES (?, ?, ?)`
	return s.prepareStmt("insertJoinEvent", query)
}

func (s *MySql) stmtTrimJoinEvents() (*sql.Stmt, error) {
	query := `DELETE FROM join_events WHERE bucket < ?`
	return s.prepareStmt("trimJoinEvents", query)
}

// --- challenges ---

const challengeColumns = `id, user_id, chat_id, question, correct_answer, options,
                   image, user_answer, is_solved, attempts,
                   prompt_msg_id, image_msg_id, choice_msg_id,
                   created_at, solved_at, expires_at`

func (s *MySql) stmtSelectChallenge() (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM challenges WHERE id = ?`, challengeColumns)
	return s.prepareStmt("selectChallenge", query)
}

func (s *MySql) stmtSelectActiveChallenge() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM challenges
                   WHERE user_id = ? AND is_solved = 0 AND expires_at > ?
                   ORDER BY id DESC LIMIT 1`,
		challengeColumns,
	)
	return s.prepareStmt("selectActiveChallenge", query)
}

func (s *MySql) stmtInsertChallenge() (*sql.Stmt, error) {
	query := `INSERT INTO challenges
                   (user_id, chat_id, question, correct_answer, options, image, expires_at)
                   VALUES (?, ?, ?, ?, ?, ?, ?)`
	return s.prepareStmt("insertChallenge", query)
}

func (s *MySql) stmtDeleteUnsolvedChallenges() (*sql.Stmt, error) {
	query := `DELETE FROM challenges WHERE user_id = ? AND is_solved = 0`
	return s.prepareStmt("deleteUnsolvedChallenges", query)
}

func (s *MySql) stmtUpdateChallengeAttempt() (*sql.Stmt, error) {
	query := `UPDATE challenges SET
                   attempts = ?,
                   user_answer = ?,
                   is_solved = ?,
                   solved_at = ?
                   WHERE id = ?`
	return s.prepareStmt("updateChallengeAttempt", query)
}

func (s *MySql) stmtUpdateChallengeMessages() (*sql.Stmt, error) {
	query := `UPDATE challenges SET
                   prompt_msg_id = ?,
                   image_msg_id = ?,
                   choice_msg_id = ?
                   WHERE id = ?`
	return s.prepareStmt("updateChallengeMessages", query)
}

func (s *MySql) stmtDeleteExpiredChallenges() (*sql.Stmt, error) {
	query := `DELETE FROM challenges WHERE is_solved = 0 AND expires_at <= ?`
	return s.prepareStmt("deleteExpiredChallenges", query)
}

// --- invitations ---

const invitationColumns = `invite_code, user_id, invite_link,
                   total_invited, total_left, is_active, created_at`

func (s *MySql) stmtSelectActiveInvitation() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invitations
                   WHERE user_id = ? AND is_active = 1
                   ORDER BY created_at DESC LIMIT 1`,
		invitationColumns,
	)
	return s.prepareStmt("selectActiveInvitation", query)
}

func (s *MySql) stmtSelectInvitationByCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE invite_code = ?`, invitationColumns)
	return s.prepareStmt("selectInvitationByCode", query)
}

func (s *MySql) stmtSelectInvitationByLink() (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM invitations WHERE invite_link = ? LIMIT 1`, invitationColumns)
	return s.prepareStmt("selectInvitationByLink", query)
}

func (s *MySql) stmtInsertInvitation() (*sql.Stmt, error) {
	query := `INSERT INTO invitations
                   (invite_code, user_id, invite_link, total_invited, total_left, is_active)
                   VALUES (?, ?, ?, ?, ?, ?)`
	return s.prepareStmt("insertInvitation", query)
}

func (s *MySql) stmtUpdateInvitationCounters() (*sql.Stmt, error) {
	query := `UPDATE invitations SET
                   total_invited = ?,
                   total_left = ?
                   WHERE invite_code = ?`
	return s.prepareStmt("updateInvitationCounters", query)
}

func (s *MySql) stmtDeactivateInvitations() (*sql.Stmt, error) {
	query := `UPDATE invitations SET is_active = 0 WHERE user_id = ? AND is_active = 1`
	return s.prepareStmt("deactivateInvitations", query)
}

// --- invitation members ---

const memberColumns = `id, invite_code, invited_user_id, has_left, joined_at, left_at`

func (s *MySql) stmtSelectMember() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invitation_members
                   WHERE invite_code = ? AND invited_user_id = ?`,
		memberColumns,
	)
	return s.prepareStmt("selectMember", query)
}

func (s *MySql) stmtInsertMember() (*sql.Stmt, error) {
	query := `INSERT INTO invitation_members
                   (invite_code, invited_user_id, has_left, joined_at)
                   VALUES (?, ?, ?, ?)`
	return s.prepareStmt("insertMember", query)
}

func (s *MySql) stmtUpdateMember() (*sql.Stmt, error) {
	query := `UPDATE invitation_members SET
                   has_left = ?,
                   joined_at = ?,
                   left_at = ?
                   WHERE id = ?`
	return s.prepareStmt("updateMember", query)
}

func (s *MySql) stmtDeleteMember() (*sql.Stmt, error) {
	query := `DELETE FROM invitation_members WHERE id = ?`
	return s.prepareStmt("deleteMember", query)
}

func (s *MySql) stmtSelectActiveMembersByUser() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invitation_members
                   WHERE invited_user_id = ? AND has_left = 0`,
		memberColumns,
	)
	return s.prepareStmt("selectActiveMembersByUser", query)
}

func (s *MySql) stmtSelectMembersByUser() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invitation_members WHERE invited_user_id = ?`,
		memberColumns,
	)
	return s.prepareStmt("selectMembersByUser", query)
}

func (s *MySql) stmtSelectMembersByCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invitation_members WHERE invite_code = ?`,
		memberColumns,
	)
	return s.prepareStmt("selectMembersByCode", query)
}

func (s *MySql) stmtSelectMemberInfos() (*sql.Stmt, error) {
	query := `SELECT m.invited_user_id, u.username, u.first_name,
                   m.has_left, m.joined_at, m.left_at
                   FROM invitation_members m
                   LEFT JOIN users u ON u.user_id = m.invited_user_id
                   WHERE m.invite_code = ?
                   ORDER BY m.joined_at DESC, m.id DESC`
	return s.prepareStmt("selectMemberInfos", query)
}

func (s *MySql) stmtSelectUserTotals() (*sql.Stmt, error) {
	query := `SELECT i.user_id, u.username, u.first_name,
                   COALESCE(SUM(i.total_invited), 0),
                   COALESCE(SUM(i.total_left), 0)
                   FROM invitations i
                   LEFT JOIN users u ON u.user_id = i.user_id
                   GROUP BY i.user_id, u.username, u.first_name`
	return s.prepareStmt("selectUserTotals", query)
}

// --- scheduled tasks ---

const taskColumns = `id, kind, payload, run_at, cancelled, completed, created_at`

func (s *MySql) stmtInsertTask() (*sql.Stmt, error) {
	query := `INSERT INTO scheduled_tasks (id, kind, payload, run_at)
                   VALUES (?, ?, ?, ?)`
	return s.prepareStmt("insertTask", query)
}

func (s *MySql) stmtSelectTask() (*sql.Stmt, error) {
	query := fmt.Sprintf(`SELECT %s FROM scheduled_tasks WHERE id = ?`, taskColumns)
	return s.prepareStmt("selectTask", query)
}

func (s *MySql) stmtCancelTask() (*sql.Stmt, error) {
	query := `UPDATE scheduled_tasks SET cancelled = 1 WHERE id = ?`
	return s.prepareStmt("cancelTask", query)
}

func (s *MySql) stmtCompleteTask() (*sql.Stmt, error) {
	query := `UPDATE scheduled_tasks SET completed = 1 WHERE id = ?`
	return s.prepareStmt("completeTask", query)
}

func (s *MySql) stmtSelectPendingTasks() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM scheduled_tasks
                   WHERE cancelled = 0 AND completed = 0
                   ORDER BY run_at ASC`,
		taskColumns,
	)
	return s.prepareStmt("selectPendingTasks", query)
}
