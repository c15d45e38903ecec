package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"groupwarden/entity"
	"groupwarden/impl/invite"
	"groupwarden/lib/sl"
)

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	user := ctx.EffectiveUser
	chatId := ctx.EffectiveChat.Id
	if err := t.db.EnsureUser(user.Id, user.Username, user.FirstName, user.LastName); err != nil {
		t.log.Error("ensure user", sl.User(user.Id), sl.Err(err))
	}

	// /start CODE via a shared deep link carries a referral code. The
	// attribution goes straight into the ledger; a failed verification
	// later removes it again.
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) > 1 {
		if code := invite.ParseCode(args[1]); code != "" {
			inviter, err := t.invite.RecordJoin(code, user.Id)
			if err != nil {
				t.log.Error("referral attribution", sl.User(user.Id), sl.Err(err))
			}
			if inviter != 0 {
				t.plainResponse(chatId, t.lang.GetText(user.Id, "start_referral", map[string]string{
					"name": displayName(user),
				}))
				return nil
			}
		}
	}

	t.plainResponse(chatId, t.lang.GetText(user.Id, "start_welcome", map[string]string{
		"name": displayName(user),
	}))
	return nil
}

func (t *TgBot) link(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	chatId := ctx.EffectiveChat.Id

	// /link new retires the current invitation so a fresh code is minted
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) > 1 && strings.EqualFold(args[1], "new") {
		retired, err := t.invite.DeactivateInvites(userId)
		if err != nil {
			t.reportError(chatId, userId, "/link", err)
			return nil
		}
		t.log.Info("invitations retired", sl.User(userId), slog.Int64("count", retired))
	}

	// Telegram caps invite link names at 32 characters
	linkName := truncateRunes(fmt.Sprintf("via %s", displayName(ctx.EffectiveUser)), 32)
	inv, err := t.invite.CreateOrGetLink(userId, func(code string) (string, error) {
		created, err := t.api.CreateChatInviteLink(t.config.GroupChatId, &tgbotapi.CreateChatInviteLinkOpts{
			Name: linkName,
		})
		if err != nil {
			return "", err
		}
		return created.InviteLink, nil
	})
	if err != nil {
		t.reportError(chatId, userId, "/link", err)
		return nil
	}

	deepLink := fmt.Sprintf("https://t.me/%s?start=%s", t.api.User.Username, inv.InviteCode)
	t.plainResponse(chatId, t.lang.GetText(userId, "link_created", map[string]string{
		"code":      inv.InviteCode,
		"link":      inv.InviteLink,
		"deep_link": deepLink,
	}))
	return nil
}

func (t *TgBot) statsCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	chatId := ctx.EffectiveChat.Id

	page, err := t.invite.PaginatedMembers(userId, 1)
	if err != nil {
		t.reportError(chatId, userId, "/stats", err)
		return nil
	}

	t.sendWithKeyboard(chatId, t.memberPageText(userId, page), buildPagerKeyboard(page))
	return nil
}

func (t *TgBot) ranking(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	chatId := ctx.EffectiveChat.Id

	kind := entity.RankingTotal
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) > 1 && entity.RankingKind(args[1]).Valid() {
		kind = entity.RankingKind(args[1])
	}

	text, err := t.rankingText(userId, kind)
	if err != nil {
		t.reportError(chatId, userId, "/ranking", err)
		return nil
	}

	t.sendWithKeyboard(chatId, text, t.buildRankingKeyboard(userId, kind))
	return nil
}

func (t *TgBot) langCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	chatId := ctx.EffectiveChat.Id

	t.sendWithKeyboard(chatId,
		t.lang.GetText(userId, "choose_language", map[string]string{
			"name": displayName(ctx.EffectiveUser),
		}),
		t.buildLanguageKeyboard(userId))
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	t.plainResponse(ctx.EffectiveChat.Id, t.lang.GetText(userId, "help", nil))
	return nil
}

// --- message builders ---

// memberPageText renders the /stats view: the aggregate counters
// followed by one clamped page of invited members.
func (t *TgBot) memberPageText(userId int64, page *entity.MemberPage) string {
	stats, err := t.invite.Stats(userId)
	if err != nil {
		t.log.Error("loading stats", sl.User(userId), sl.Err(err))
		stats = &entity.InvitationStats{}
	}

	var b strings.Builder
	b.WriteString(t.lang.GetText(userId, "stats_header", map[string]string{
		"invited": strconv.Itoa(stats.TotalInvited),
		"active":  strconv.Itoa(stats.ActiveMembers),
		"left":    strconv.Itoa(stats.TotalLeft),
	}))

	if len(page.Members) == 0 {
		b.WriteString("\n\n")
		b.WriteString(t.lang.GetText(userId, "stats_empty", nil))
		return b.String()
	}

	b.WriteString("\n")
	for _, m := range page.Members {
		b.WriteString("\n")
		if m.HasLeft {
			b.WriteString(fmt.Sprintf("✗ %s — %s", m.Name, m.JoinedAt.Format("2006-01-02")))
		} else {
			b.WriteString(fmt.Sprintf("✓ %s — %s", m.Name, m.JoinedAt.Format("2006-01-02")))
		}
	}
	return b.String()
}

// rankingText renders a leaderboard with the caller's own position
// appended when they rank at all.
func (t *TgBot) rankingText(userId int64, kind entity.RankingKind) (string, error) {
	entries, err := t.stats.Ranking(kind)
	if err != nil {
		return "", err
	}

	titleKey := "ranking_title_total"
	if kind == entity.RankingActive {
		titleKey = "ranking_title_active"
	}

	var b strings.Builder
	b.WriteString(t.lang.GetText(userId, titleKey, nil))

	if len(entries) == 0 {
		b.WriteString("\n\n")
		b.WriteString(t.lang.GetText(userId, "ranking_empty", nil))
		return b.String(), nil
	}

	b.WriteString("\n")
	for _, e := range entries {
		b.WriteString("\n")
		switch e.Rank {
		case 1:
			b.WriteString("🥇 ")
		case 2:
			b.WriteString("🥈 ")
		case 3:
			b.WriteString("🥉 ")
		default:
			b.WriteString(fmt.Sprintf("%d. ", e.Rank))
		}
		b.WriteString(fmt.Sprintf("%s — %d", e.Name, e.Count))
	}

	pos, err := t.stats.Position(kind, userId)
	if err != nil {
		return "", err
	}
	if pos != nil {
		b.WriteString("\n\n")
		b.WriteString(t.lang.GetText(userId, "ranking_position", map[string]string{
			"rank":  strconv.Itoa(pos.Rank),
			"total": strconv.Itoa(pos.TotalUsers),
			"count": strconv.Itoa(pos.Count),
		}))
	}
	return b.String(), nil
}
