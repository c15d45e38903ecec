package core

import (
	"fmt"
	"log/slog"

	"groupwarden/entity"
	"groupwarden/lib/sl"
)

type AuthService interface {
	ValidateToken(token string) error
}

type StatsService interface {
	Ranking(kind entity.RankingKind) ([]entity.RankEntry, error)
	Position(kind entity.RankingKind, userId int64) (*entity.RankPosition, error)
}

type InviteService interface {
	Stats(userId int64) (*entity.InvitationStats, error)
	PaginatedMembers(userId int64, page int) (*entity.MemberPage, error)
	Recompute(code string) (*entity.Invitation, error)
}

// Core is the read-only facade the HTTP API talks to; it hides the
// individual services behind one handler value.
type Core struct {
	auth   AuthService
	stats  StatsService
	invite InviteService
	log    *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetStatsService(stats StatsService) {
	c.stats = stats
}

func (c *Core) SetInviteService(invite InviteService) {
	c.invite = invite
}

func (c *Core) AuthenticateByToken(token string) error {
	if c.auth == nil {
		return fmt.Errorf("auth service not connected")
	}
	return c.auth.ValidateToken(token)
}

func (c *Core) Ranking(kind entity.RankingKind) ([]entity.RankEntry, error) {
	if c.stats == nil {
		return nil, fmt.Errorf("stats service not connected")
	}
	return c.stats.Ranking(kind)
}

func (c *Core) Position(kind entity.RankingKind, userId int64) (*entity.RankPosition, error) {
	if c.stats == nil {
		return nil, fmt.Errorf("stats service not connected")
	}
	return c.stats.Position(kind, userId)
}

func (c *Core) UserStats(userId int64) (*entity.InvitationStats, error) {
	if c.invite == nil {
		return nil, fmt.Errorf("invite service not connected")
	}
	return c.invite.Stats(userId)
}

func (c *Core) UserMembers(userId int64, page int) (*entity.MemberPage, error) {
	if c.invite == nil {
		return nil, fmt.Errorf("invite service not connected")
	}
	return c.invite.PaginatedMembers(userId, page)
}

func (c *Core) RecomputeInvitation(code string) (*entity.Invitation, error) {
	if c.invite == nil {
		return nil, fmt.Errorf("invite service not connected")
	}
	return c.invite.Recompute(code)
}
