package database

import (
	"database/sql"

	"groupwarden/entity"
)

func scanInvitation(row interface{ Scan(...interface{}) error }) (*entity.Invitation, error) {
	var inv entity.Invitation
	err := row.Scan(
		&inv.InviteCode,
		&inv.UserID,
		&inv.InviteLink,
		&inv.TotalInvited,
		&inv.TotalLeft,
		&inv.IsActive,
		&inv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *MySql) ActiveInvitationByUser(userId int64) (*entity.Invitation, error) {
	stmt, err := s.stmtSelectActiveInvitation()
	if err != nil {
		return nil, err
	}
	return scanInvitation(stmt.QueryRow(userId))
}

func (s *MySql) InvitationByCode(code string) (*entity.Invitation, error) {
	stmt, err := s.stmtSelectInvitationByCode()
	if err != nil {
		return nil, err
	}
	return scanInvitation(stmt.QueryRow(code))
}

// InvitationByLink matches a platform invite link back to its ledger row.
func (s *MySql) InvitationByLink(link string) (*entity.Invitation, error) {
	stmt, err := s.stmtSelectInvitationByLink()
	if err != nil {
		return nil, err
	}
	return scanInvitation(stmt.QueryRow(link))
}

func (s *MySql) CreateInvitation(inv *entity.Invitation) error {
	stmt, err := s.stmtInsertInvitation()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(inv.InviteCode, inv.UserID, inv.InviteLink, inv.TotalInvited, inv.TotalLeft, inv.IsActive)
	return err
}

func (s *MySql) UpdateInvitationCounters(code string, totalInvited, totalLeft int) error {
	stmt, err := s.stmtUpdateInvitationCounters()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(totalInvited, totalLeft, code)
	return err
}

// DeactivateInvitations retires a user's active links without deleting
// their counters.
func (s *MySql) DeactivateInvitations(userId int64) (int64, error) {
	stmt, err := s.stmtDeactivateInvitations()
	if err != nil {
		return 0, err
	}
	res, err := stmt.Exec(userId)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- members ---

func scanMember(row interface{ Scan(...interface{}) error }) (*entity.InvitationMember, error) {
	var m entity.InvitationMember
	var leftAt sql.NullTime
	err := row.Scan(
		&m.ID,
		&m.InviteCode,
		&m.InvitedUserID,
		&m.HasLeft,
		&m.JoinedAt,
		&leftAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if leftAt.Valid {
		t := leftAt.Time
		m.LeftAt = &t
	}
	return &m, nil
}

func (s *MySql) MemberByCodeAndUser(code string, userId int64) (*entity.InvitationMember, error) {
	stmt, err := s.stmtSelectMember()
	if err != nil {
		return nil, err
	}
	return scanMember(stmt.QueryRow(code, userId))
}

func (s *MySql) CreateMember(m *entity.InvitationMember) error {
	stmt, err := s.stmtInsertMember()
	if err != nil {
		return err
	}
	res, err := stmt.Exec(m.InviteCode, m.InvitedUserID, m.HasLeft, m.JoinedAt)
	if err != nil {
		return err
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

func (s *MySql) SaveMember(m *entity.InvitationMember) error {
	stmt, err := s.stmtUpdateMember()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(m.HasLeft, m.JoinedAt, nullTime(m.LeftAt), m.ID)
	return err
}

func (s *MySql) DeleteMember(id int64) error {
	stmt, err := s.stmtDeleteMember()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(id)
	return err
}

func (s *MySql) membersQuery(stmt *sql.Stmt, arg interface{}) ([]*entity.InvitationMember, error) {
	rows, err := stmt.Query(arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*entity.InvitationMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ActiveMembersByUser lists the not-yet-left membership rows of one
// invited user, for leave processing.
func (s *MySql) ActiveMembersByUser(userId int64) ([]*entity.InvitationMember, error) {
	stmt, err := s.stmtSelectActiveMembersByUser()
	if err != nil {
		return nil, err
	}
	return s.membersQuery(stmt, userId)
}

// MembersByUser lists every membership row of one invited user,
// for removal from statistics after a failed verification.
func (s *MySql) MembersByUser(userId int64) ([]*entity.InvitationMember, error) {
	stmt, err := s.stmtSelectMembersByUser()
	if err != nil {
		return nil, err
	}
	return s.membersQuery(stmt, userId)
}

func (s *MySql) MembersByCode(code string) ([]*entity.InvitationMember, error) {
	stmt, err := s.stmtSelectMembersByCode()
	if err != nil {
		return nil, err
	}
	return s.membersQuery(stmt, code)
}

// MemberInfosByCode joins member rows with user display data, newest
// join first, for the paginated member list.
func (s *MySql) MemberInfosByCode(code string) ([]entity.MemberInfo, error) {
	stmt, err := s.stmtSelectMemberInfos()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []entity.MemberInfo
	for rows.Next() {
		var info entity.MemberInfo
		var username, firstName sql.NullString
		var leftAt sql.NullTime
		if err = rows.Scan(
			&info.UserID,
			&username,
			&firstName,
			&info.HasLeft,
			&info.JoinedAt,
			&leftAt,
		); err != nil {
			return nil, err
		}
		u := entity.User{UserID: info.UserID, Username: username.String, FirstName: firstName.String}
		info.Name = u.DisplayName()
		if leftAt.Valid {
			t := leftAt.Time
			info.LeftAt = &t
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// UserInvitationTotals aggregates lifetime invited/left sums per user
// for the ranking views.
func (s *MySql) UserInvitationTotals() ([]entity.UserTotals, error) {
	stmt, err := s.stmtSelectUserTotals()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []entity.UserTotals
	for rows.Next() {
		var t entity.UserTotals
		var username, firstName sql.NullString
		if err = rows.Scan(
			&t.UserID,
			&username,
			&firstName,
			&t.TotalInvited,
			&t.TotalLeft,
		); err != nil {
			return nil, err
		}
		t.Username = username.String
		t.FirstName = firstName.String
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
