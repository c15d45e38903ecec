package invite

import (
	"crypto/md5"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"groupwarden/entity"
	"groupwarden/lib/sl"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{12}$`)

// LinkCreator mints a shareable invite link on the chat platform. The
// bot passes a closure over the Telegram API here.
type LinkCreator func(code string) (string, error)

// Store is the slice of the database layer this service needs.
type Store interface {
	ActiveInvitationByUser(userId int64) (*entity.Invitation, error)
	InvitationByCode(code string) (*entity.Invitation, error)
	InvitationByLink(link string) (*entity.Invitation, error)
	CreateInvitation(inv *entity.Invitation) error
	UpdateInvitationCounters(code string, totalInvited, totalLeft int) error
	DeactivateInvitations(userId int64) (int64, error)
	MemberByCodeAndUser(code string, userId int64) (*entity.InvitationMember, error)
	CreateMember(m *entity.InvitationMember) error
	SaveMember(m *entity.InvitationMember) error
	DeleteMember(id int64) error
	ActiveMembersByUser(userId int64) ([]*entity.InvitationMember, error)
	MembersByUser(userId int64) ([]*entity.InvitationMember, error)
	MembersByCode(code string) ([]*entity.InvitationMember, error)
	MemberInfosByCode(code string) ([]entity.MemberInfo, error)
	SetInvitedBy(userId, inviterId int64) error
}

// Service maintains the referral ledger: invitation records, member
// rows and the derived counters.
type Service struct {
	store          Store
	membersPerPage int
	log            *slog.Logger
}

func New(store Store, membersPerPage int, log *slog.Logger) *Service {
	if membersPerPage < 1 {
		membersPerPage = 10
	}
	return &Service{
		store:          store,
		membersPerPage: membersPerPage,
		log:            log.With(sl.Module("impl.invite")),
	}
}

// CreateOrGetLink returns the user's active invitation, minting a new
// code and platform link when none exists.
func (s *Service) CreateOrGetLink(userId int64, create LinkCreator) (*entity.Invitation, error) {
	inv, err := s.store.ActiveInvitationByUser(userId)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv != nil {
		return inv, nil
	}

	code := generateCode(userId)
	link := ""
	if create != nil {
		if link, err = create(code); err != nil {
			return nil, fmt.Errorf("create invite link: %w", err)
		}
	}

	inv = &entity.Invitation{
		InviteCode: code,
		UserID:     userId,
		InviteLink: link,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	if err = s.store.CreateInvitation(inv); err != nil {
		return nil, fmt.Errorf("store invitation: %w", err)
	}
	s.log.Info("invitation created", sl.User(userId), slog.String("code", code))
	return inv, nil
}

// generateCode derives a 12-character uppercase code from the user id,
// the current time and a random salt.
func generateCode(userId int64) string {
	salt := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	seed := fmt.Sprintf("%d_%d_%s", userId, time.Now().Unix(), salt)
	sum := fmt.Sprintf("%x", md5.Sum([]byte(seed)))
	return strings.ToUpper(sum[:12])
}

// ParseCode validates a referral payload from a /start deep link.
// Returns the normalized code, or empty when the payload is not a code.
func ParseCode(payload string) string {
	code := strings.TrimSpace(payload)
	if !codePattern.MatchString(code) {
		return ""
	}
	return code
}

// RecordJoin attributes a group join to the invitation with the given
// code. Repeat joins are idempotent; a rejoin after a leave reactivates
// the member row. Returns the inviter id, or 0 when nothing was
// attributed.
func (s *Service) RecordJoin(code string, userId int64) (int64, error) {
	inv, err := s.store.InvitationByCode(code)
	if err != nil {
		return 0, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil {
		return 0, nil
	}
	// self-referral is not counted
	if inv.UserID == userId {
		return 0, nil
	}

	member, err := s.store.MemberByCodeAndUser(code, userId)
	if err != nil {
		return 0, fmt.Errorf("load member: %w", err)
	}

	switch {
	case member == nil:
		member = &entity.InvitationMember{
			InviteCode:    code,
			InvitedUserID: userId,
			JoinedAt:      time.Now(),
		}
		if err = s.store.CreateMember(member); err != nil {
			return 0, fmt.Errorf("store member: %w", err)
		}
	case member.HasLeft:
		member.HasLeft = false
		member.LeftAt = nil
		member.JoinedAt = time.Now()
		if err = s.store.SaveMember(member); err != nil {
			return 0, fmt.Errorf("reactivate member: %w", err)
		}
	default:
		// already counted
		return inv.UserID, nil
	}

	if err = s.store.SetInvitedBy(userId, inv.UserID); err != nil {
		return 0, fmt.Errorf("set inviter: %w", err)
	}
	if err = s.recomputeStats(code); err != nil {
		return 0, err
	}
	s.log.Info("join recorded", sl.User(userId), slog.String("code", code))
	return inv.UserID, nil
}

// RecordJoinByLink attributes a join that arrived through a platform
// invite link rather than a deep-link code.
func (s *Service) RecordJoinByLink(link string, userId int64) (int64, error) {
	if link == "" {
		return 0, nil
	}
	inv, err := s.store.InvitationByLink(link)
	if err != nil {
		return 0, fmt.Errorf("load invitation by link: %w", err)
	}
	if inv == nil {
		return 0, nil
	}
	return s.RecordJoin(inv.InviteCode, userId)
}

// RecordLeave marks every active member row of the leaving user and
// refreshes the affected counters.
func (s *Service) RecordLeave(userId int64) error {
	members, err := s.store.ActiveMembersByUser(userId)
	if err != nil {
		return fmt.Errorf("load member rows: %w", err)
	}
	now := time.Now()
	codes := make(map[string]bool)
	for _, m := range members {
		m.HasLeft = true
		m.LeftAt = &now
		if err = s.store.SaveMember(m); err != nil {
			return fmt.Errorf("save member: %w", err)
		}
		codes[m.InviteCode] = true
	}
	for code := range codes {
		if err = s.recomputeStats(code); err != nil {
			return err
		}
	}
	if len(members) > 0 {
		s.log.Info("leave recorded", sl.User(userId))
	}
	return nil
}

// RemoveFromStats erases a user from the ledger entirely, for joiners
// who failed verification and were removed from the group.
func (s *Service) RemoveFromStats(userId int64) error {
	members, err := s.store.MembersByUser(userId)
	if err != nil {
		return fmt.Errorf("load member rows: %w", err)
	}
	codes := make(map[string]bool)
	for _, m := range members {
		if err = s.store.DeleteMember(m.ID); err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		codes[m.InviteCode] = true
	}
	for code := range codes {
		if err = s.recomputeStats(code); err != nil {
			return err
		}
	}
	return nil
}

// recomputeStats rebuilds the invitation counters from its member rows,
// the single source of truth.
func (s *Service) recomputeStats(code string) error {
	members, err := s.store.MembersByCode(code)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	invited := len(members)
	left := 0
	for _, m := range members {
		if m.HasLeft {
			left++
		}
	}
	if err = s.store.UpdateInvitationCounters(code, invited, left); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return nil
}

// Recompute repairs one invitation's counters from its member rows and
// returns the refreshed record, or nil when the code is unknown.
func (s *Service) Recompute(code string) (*entity.Invitation, error) {
	inv, err := s.store.InvitationByCode(code)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil {
		return nil, nil
	}
	if err = s.recomputeStats(code); err != nil {
		return nil, err
	}
	return s.store.InvitationByCode(code)
}

// Stats returns the aggregate view of a user's active invitation.
// A user with no invitation gets zeroed stats, not an error.
func (s *Service) Stats(userId int64) (*entity.InvitationStats, error) {
	inv, err := s.store.ActiveInvitationByUser(userId)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil {
		return &entity.InvitationStats{}, nil
	}
	return &entity.InvitationStats{
		InviteCode:    inv.InviteCode,
		InviteLink:    inv.InviteLink,
		TotalInvited:  inv.TotalInvited,
		TotalLeft:     inv.TotalLeft,
		ActiveMembers: inv.ActiveMembers(),
	}, nil
}

// PaginatedMembers returns one page of the user's invited members,
// newest join first. The requested page is clamped into the valid
// range, so out-of-range requests never error.
func (s *Service) PaginatedMembers(userId int64, page int) (*entity.MemberPage, error) {
	inv, err := s.store.ActiveInvitationByUser(userId)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil {
		return &entity.MemberPage{CurrentPage: 1, TotalPages: 1}, nil
	}

	infos, err := s.store.MemberInfosByCode(inv.InviteCode)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	total := len(infos)
	totalPages := (total + s.membersPerPage - 1) / s.membersPerPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * s.membersPerPage
	end := start + s.membersPerPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &entity.MemberPage{
		Members:      infos[start:end],
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalMembers: total,
		HasPrevious:  page > 1,
		HasNext:      page < totalPages,
	}, nil
}

// DeactivateInvites retires the user's active invite links.
func (s *Service) DeactivateInvites(userId int64) (int64, error) {
	return s.store.DeactivateInvitations(userId)
}
