package database

import "fmt"

// Table definitions. The bot owns this schema, so the bootstrap creates
// everything on startup instead of migrating an external database.
var tables = map[string]string{
	"users": `CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT NOT NULL,
		username VARCHAR(255) NULL,
		first_name VARCHAR(255) NULL,
		last_name VARCHAR(255) NULL,
		language_code VARCHAR(10) NOT NULL DEFAULT 'en',
		is_verified TINYINT(1) NOT NULL DEFAULT 0,
		invited_by_user_id BIGINT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id)
	)`,
	"invitations": `CREATE TABLE IF NOT EXISTS invitations (
		invite_code VARCHAR(50) NOT NULL,
		user_id BIGINT NOT NULL,
		invite_link VARCHAR(500) NOT NULL DEFAULT '',
		total_invited INT NOT NULL DEFAULT 0,
		total_left INT NOT NULL DEFAULT 0,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (invite_code),
		KEY idx_invitations_user (user_id)
	)`,
	"invitation_members": `CREATE TABLE IF NOT EXISTS invitation_members (
		id BIGINT NOT NULL AUTO_INCREMENT,
		invite_code VARCHAR(50) NOT NULL,
		invited_user_id BIGINT NOT NULL,
		has_left TINYINT(1) NOT NULL DEFAULT 0,
		joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		left_at DATETIME NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_member (invite_code, invited_user_id),
		KEY idx_members_user (invited_user_id)
	)`,
	"challenges": `CREATE TABLE IF NOT EXISTS challenges (
		id BIGINT NOT NULL AUTO_INCREMENT,
		user_id BIGINT NOT NULL,
		chat_id BIGINT NOT NULL DEFAULT 0,
		question TEXT NOT NULL,
		correct_answer VARCHAR(50) NOT NULL,
		options TEXT NULL,
		image LONGBLOB NULL,
		user_answer VARCHAR(50) NULL,
		is_solved TINYINT(1) NOT NULL DEFAULT 0,
		attempts INT NOT NULL DEFAULT 0,
		prompt_msg_id BIGINT NOT NULL DEFAULT 0,
		image_msg_id BIGINT NOT NULL DEFAULT 0,
		choice_msg_id BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		solved_at DATETIME NULL,
		expires_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		KEY idx_challenges_user (user_id, is_solved)
	)`,
	"languages": `CREATE TABLE IF NOT EXISTS languages (
		code VARCHAR(10) NOT NULL,
		name VARCHAR(100) NOT NULL,
		country VARCHAR(100) NOT NULL DEFAULT '',
		translations TEXT NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		PRIMARY KEY (code)
	)`,
	"join_events": `CREATE TABLE IF NOT EXISTS join_events (
		chat_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		bucket BIGINT NOT NULL,
		PRIMARY KEY (chat_id, user_id, bucket)
	)`,
	"scheduled_tasks": `CREATE TABLE IF NOT EXISTS scheduled_tasks (
		id VARCHAR(36) NOT NULL,
		kind VARCHAR(50) NOT NULL,
		payload TEXT NOT NULL,
		run_at DATETIME NOT NULL,
		cancelled TINYINT(1) NOT NULL DEFAULT 0,
		completed TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_tasks_pending (completed, cancelled, run_at)
	)`,
}

// createTables runs in a fixed order so foreign data (members referencing
// invitations) is created after its parents on a fresh database.
var tableOrder = []string{
	"users", "invitations", "invitation_members",
	"challenges", "languages", "join_events", "scheduled_tasks",
}

func (s *MySql) createTables() error {
	for _, name := range tableOrder {
		if _, err := s.db.Exec(tables[name]); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	return nil
}
