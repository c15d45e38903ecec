package bot

import (
	"encoding/json"
	"log/slog"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"groupwarden/entity"
	"groupwarden/lib/clock"
	"groupwarden/lib/sl"
)

// timeoutPayload is the durable argument of a verify_timeout task.
type timeoutPayload struct {
	ChatID    int64 `json:"chat_id"`
	UserID    int64 `json:"user_id"`
	MessageID int64 `json:"message_id"` // language prompt to clean up
}

// deletePayload is the durable argument of a delete_message task.
type deletePayload struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// --- update filters ---

func hasNewMembers(msg *tgbotapi.Message) bool {
	return len(msg.NewChatMembers) > 0
}

func hasLeftMember(msg *tgbotapi.Message) bool {
	return msg.LeftChatMember != nil
}

// memberJoinedViaLink matches chat_member updates where someone entered
// through an invite link the bot can attribute.
func memberJoinedViaLink(u *tgbotapi.ChatMemberUpdated) bool {
	if u.InviteLink == nil {
		return false
	}
	oldStatus := u.OldChatMember.MergeChatMember().Status
	newStatus := u.NewChatMember.MergeChatMember().Status
	isIn := newStatus == "member" || newStatus == "restricted"
	return !statusPresent(oldStatus) && isIn
}

// --- join / leave handlers ---

func (t *TgBot) onNewMembers(_ *tgbotapi.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg.Chat.Id != t.config.GroupChatId {
		return nil
	}
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		t.handleJoin(msg.Chat.Id, &member)
	}
	return nil
}

func (t *TgBot) onMemberLeft(_ *tgbotapi.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg.Chat.Id != t.config.GroupChatId {
		return nil
	}
	left := msg.LeftChatMember
	if left == nil || left.IsBot {
		return nil
	}
	if err := t.invite.RecordLeave(left.Id); err != nil {
		t.log.Error("recording leave", sl.User(left.Id), sl.Err(err))
	}
	return nil
}

// onJoinViaLink attributes a join that came through a minted invite
// link. The message-based join handler runs the captcha flow; this one
// only credits the inviter.
func (t *TgBot) onJoinViaLink(_ *tgbotapi.Bot, ctx *ext.Context) error {
	upd := ctx.ChatMember
	if upd.Chat.Id != t.config.GroupChatId {
		return nil
	}
	member := upd.NewChatMember.MergeChatMember().User
	if member.IsBot {
		return nil
	}
	inviter, err := t.invite.RecordJoinByLink(upd.InviteLink.InviteLink, member.Id)
	if err != nil {
		t.log.Error("link attribution", sl.User(member.Id), sl.Err(err))
		return nil
	}
	if inviter != 0 {
		t.log.Info("join attributed to link",
			sl.User(member.Id), slog.Int64("inviter", inviter))
	}
	return nil
}

// handleJoin runs the gate for one joined user: de-dup, restriction
// and the language prompt that leads into the captcha. Referral
// attribution happened earlier, at /start or via the invite link.
func (t *TgBot) handleJoin(chatId int64, member *tgbotapi.User) {
	userId := member.Id
	if err := t.db.EnsureUser(userId, member.Username, member.FirstName, member.LastName); err != nil {
		t.log.Error("ensure user", sl.User(userId), sl.Err(err))
	}

	// the same user re-announced within the window is processed once
	now := time.Now()
	fresh, err := t.db.RecordJoinEvent(chatId, userId, clock.Bucket(now), clock.OldestLiveBucket(now, 5*time.Minute))
	if err != nil {
		t.log.Error("join de-dup", sl.User(userId), sl.Err(err))
	} else if !fresh {
		t.log.Debug("duplicate join ignored", sl.User(userId))
		return
	}

	verified, err := t.verify.IsVerified(userId)
	if err != nil {
		t.log.Error("verified lookup", sl.User(userId), sl.Err(err))
	}
	if verified {
		t.log.Info("verified user rejoined", sl.User(userId))
		return
	}

	t.restrictUser(chatId, userId)

	prompt := t.lang.GetText(userId, "choose_language", map[string]string{
		"name": displayName(member),
	})
	msg, err := t.api.SendMessage(chatId, prompt, &tgbotapi.SendMessageOpts{
		ReplyMarkup: t.buildLanguageKeyboard(userId),
	})
	if err != nil {
		t.log.Error("sending language prompt", sl.User(userId), sl.Err(err))
		return
	}

	t.scheduleTimeout(chatId, userId, msg.MessageId)
}

// scheduleTimeout arms the durable kick timer for an unverified joiner.
func (t *TgBot) scheduleTimeout(chatId, userId, messageId int64) {
	payload, _ := json.Marshal(timeoutPayload{
		ChatID:    chatId,
		UserID:    userId,
		MessageID: messageId,
	})
	taskId, err := t.sched.RunOnce(entity.TaskVerifyTimeout, string(payload), t.config.ChallengeTimeout)
	if err != nil {
		t.log.Error("scheduling verify timeout", sl.User(userId), sl.Err(err))
		return
	}
	t.mu.Lock()
	t.timeoutTasks[userId] = taskId
	t.mu.Unlock()
}

// cancelTimeout drops a user's pending kick after a successful
// verification.
func (t *TgBot) cancelTimeout(userId int64) {
	t.mu.Lock()
	taskId := t.timeoutTasks[userId]
	delete(t.timeoutTasks, userId)
	t.mu.Unlock()
	if taskId == "" {
		return
	}
	if err := t.sched.Cancel(taskId); err != nil {
		t.log.Error("cancel timeout task", sl.User(userId), sl.Err(err))
	}
}

// scheduleMessageDelete removes a prompt message when the challenge
// window closes.
func (t *TgBot) scheduleMessageDelete(chatId, messageId int64, delay time.Duration) {
	if messageId == 0 {
		return
	}
	payload, _ := json.Marshal(deletePayload{ChatID: chatId, MessageID: messageId})
	if _, err := t.sched.RunOnce(entity.TaskDeleteMessage, string(payload), delay); err != nil {
		t.log.Error("scheduling message delete", sl.Err(err))
	}
}

// --- scheduled task callbacks ---

// onVerifyTimeout fires when a joiner's challenge window closed. The
// verified flag is re-checked here: a user who solved the captcha after
// the task was armed but before a crashed cancel is never kicked.
func (t *TgBot) onVerifyTimeout(raw string) {
	var payload timeoutPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.log.Error("bad timeout payload", sl.Err(err))
		return
	}

	verified, err := t.verify.IsVerified(payload.UserID)
	if err != nil {
		t.log.Error("verified lookup on timeout", sl.User(payload.UserID), sl.Err(err))
		return
	}
	if verified {
		return
	}

	t.log.Info("verification timed out", sl.User(payload.UserID))
	t.removeUnverified(payload.ChatID, payload.UserID)
	t.deleteMessage(payload.ChatID, payload.MessageID)
}

func (t *TgBot) onDeleteMessage(raw string) {
	var payload deletePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.log.Error("bad delete payload", sl.Err(err))
		return
	}
	t.deleteMessage(payload.ChatID, payload.MessageID)
}

// removeUnverified cleans up after a failed or timed-out verification:
// challenge messages are deleted and the user is erased from the invite
// statistics so failed joins never count as referrals. The kick only
// happens when the user is actually still in the group; someone who
// already left on their own gets the bookkeeping without a ban.
func (t *TgBot) removeUnverified(chatId, userId int64) {
	t.cancelTimeout(userId)

	if ch, err := t.verify.Active(userId); err == nil && ch != nil {
		t.deleteMessage(ch.ChatID, ch.PromptMsgID)
		t.deleteMessage(ch.ChatID, ch.ImageMsgID)
		t.deleteMessage(ch.ChatID, ch.ChoiceMsgID)
	}

	if t.memberPresent(chatId, userId) {
		t.kickUser(chatId, userId)
	}

	if err := t.invite.RemoveFromStats(userId); err != nil {
		t.log.Error("removing from stats", sl.User(userId), sl.Err(err))
	}
}

// memberPresent reports whether the user is still in the chat. Lookup
// failures count as absent so stale data never triggers a ban.
func (t *TgBot) memberPresent(chatId, userId int64) bool {
	member, err := t.api.GetChatMember(chatId, userId, nil)
	if err != nil {
		t.log.Debug("member lookup", sl.User(userId), sl.Err(err))
		return false
	}
	return statusPresent(member.MergeChatMember().Status)
}

func statusPresent(status string) bool {
	return status != "left" && status != "kicked"
}

// --- member state changes ---

func (t *TgBot) restrictUser(chatId, userId int64) {
	_, err := t.api.RestrictChatMember(chatId, userId, tgbotapi.ChatPermissions{}, nil)
	if err != nil {
		t.log.Error("restricting member", sl.User(userId), sl.Err(err))
	}
}

func (t *TgBot) grantUser(chatId, userId int64) {
	_, err := t.api.RestrictChatMember(chatId, userId, tgbotapi.ChatPermissions{
		CanSendMessages:       true,
		CanSendAudios:         true,
		CanSendDocuments:      true,
		CanSendPhotos:         true,
		CanSendVideos:         true,
		CanSendVideoNotes:     true,
		CanSendVoiceNotes:     true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
		CanInviteUsers:        true,
	}, nil)
	if err != nil {
		t.log.Error("lifting restriction", sl.User(userId), sl.Err(err))
	}
}

// kickUser removes a member without a permanent ban: ban then unban, so
// the user may rejoin and try again.
func (t *TgBot) kickUser(chatId, userId int64) {
	if _, err := t.api.BanChatMember(chatId, userId, nil); err != nil {
		t.log.Error("banning member", sl.User(userId), sl.Err(err))
		return
	}
	if _, err := t.api.UnbanChatMember(chatId, userId, nil); err != nil {
		t.log.Error("unbanning member", sl.User(userId), sl.Err(err))
	}
}
