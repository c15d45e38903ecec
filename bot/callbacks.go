package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"groupwarden/entity"
	"groupwarden/lib/sl"
)

// --- Keyboard builders ---

// buildLanguageKeyboard lists the active catalog languages in rows of
// two, flag plus name. The buttons carry the addressed user's id so no
// one else can answer the prompt.
func (t *TgBot) buildLanguageKeyboard(userId int64) tgbotapi.InlineKeyboardMarkup {
	languages := t.lang.AvailableLanguages()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(languages)/2+1)

	var row []tgbotapi.InlineKeyboardButton
	for i, l := range languages {
		row = append(row, tgbotapi.InlineKeyboardButton{
			Text:         l.Label(),
			CallbackData: languageAction(l.Code, userId),
		})
		if len(row) == 2 || i == len(languages)-1 {
			rows = append(rows, row)
			row = nil
		}
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// buildCaptchaKeyboard shows the four answer values as one A-D row.
func buildCaptchaKeyboard(ch *entity.Challenge) tgbotapi.InlineKeyboardMarkup {
	letters := []string{"A", "B", "C", "D"}
	values := ch.OptionValues()

	row := make([]tgbotapi.InlineKeyboardButton, 0, len(letters))
	for i, letter := range letters {
		label := letter
		if i < len(values) {
			label = fmt.Sprintf("%s) %d", letter, values[i])
		}
		row = append(row, tgbotapi.InlineKeyboardButton{
			Text:         label,
			CallbackData: captchaAction(ch.ID, letter),
		})
	}
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{row},
	}
}

// buildPagerKeyboard navigates the member list. The middle button is a
// passive page indicator.
func buildPagerKeyboard(page *entity.MemberPage) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if page.HasPrevious {
		row = append(row, tgbotapi.InlineKeyboardButton{
			Text:         "«",
			CallbackData: pageAction(page.CurrentPage - 1),
		})
	}
	row = append(row, tgbotapi.InlineKeyboardButton{
		Text:         strconv.Itoa(page.CurrentPage) + "/" + strconv.Itoa(page.TotalPages),
		CallbackData: cbNoop,
	})
	if page.HasNext {
		row = append(row, tgbotapi.InlineKeyboardButton{
			Text:         "»",
			CallbackData: pageAction(page.CurrentPage + 1),
		})
	}
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{row},
	}
}

// buildRankingKeyboard switches between the two leaderboard views.
func (t *TgBot) buildRankingKeyboard(userId int64, current entity.RankingKind) tgbotapi.InlineKeyboardMarkup {
	kinds := []struct {
		kind entity.RankingKind
		key  string
	}{
		{entity.RankingTotal, "ranking_total"},
		{entity.RankingActive, "ranking_active"},
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, k := range kinds {
		label := t.lang.GetText(userId, k.key, nil)
		if k.kind == current {
			label += " ✓"
		}
		row = append(row, tgbotapi.InlineKeyboardButton{
			Text:         label,
			CallbackData: rankingAction(k.kind),
		})
	}
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{row},
	}
}

// --- Callback handlers ---
// All callback handlers follow the same pattern:
//  1. Parse the callback data into a typed Action
//  2. Apply the change through the services
//  3. Edit the source message or its keyboard in-place
//  4. Answer the callback query (removes the loading spinner)

func (t *TgBot) onLanguageCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	action, err := ParseAction(cq.Data)
	if err != nil {
		t.log.Error("language callback", sl.User(userId), sl.Err(err))
		t.answerCallback(cq, "", false)
		return nil
	}
	if action.TargetUser != userId {
		// someone pressed a button on another member's prompt
		t.answerCallback(cq, t.lang.GetText(userId, "language_not_yours", nil), true)
		return nil
	}

	if err = t.lang.SetUserLanguage(userId, action.Language); err != nil {
		t.answerCallback(cq, t.lang.GetText(userId, "language_invalid", nil), true)
		return nil
	}

	verified, err := t.verify.IsVerified(userId)
	if err != nil {
		t.reportError(callbackChatId(cq, userId), userId, "language:verified", err)
		return nil
	}

	msg, hasMsg := callbackMessage(cq)

	// inside the gate the language pick leads straight into the captcha
	if !verified && hasMsg && msg.Chat.Id == t.config.GroupChatId {
		t.deleteMessage(msg.Chat.Id, msg.MessageId)
		t.sendChallenge(msg.Chat.Id, userId)
		t.answerCallback(cq, "", false)
		return nil
	}

	// settings change from /lang: refresh the keyboard in place
	if hasMsg {
		_, _, _ = t.api.EditMessageReplyMarkup(&tgbotapi.EditMessageReplyMarkupOpts{
			ChatId:      msg.Chat.Id,
			MessageId:   msg.MessageId,
			ReplyMarkup: t.buildLanguageKeyboard(userId),
		})
	}
	t.answerCallback(cq, t.lang.GetText(userId, "language_saved", nil), false)
	return nil
}

func (t *TgBot) onCaptchaCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	action, err := ParseAction(cq.Data)
	if err != nil {
		t.log.Error("captcha callback", sl.User(userId), sl.Err(err))
		t.answerCallback(cq, "", false)
		return nil
	}

	ch, err := t.verify.ByID(action.ChallengeID)
	if err != nil {
		t.reportError(callbackChatId(cq, userId), userId, "captcha:load", err)
		return nil
	}
	if ch == nil || ch.UserID != userId {
		// someone pressed a button on another member's challenge
		t.answerCallback(cq, t.lang.GetText(userId, "captcha_not_yours", nil), true)
		return nil
	}

	correct, _, expired, err := t.verify.Verify(action.ChallengeID, action.Answer)
	if err != nil {
		t.reportError(ch.ChatID, userId, "captcha:verify", err)
		return nil
	}

	switch {
	case expired:
		t.answerCallback(cq, t.lang.GetText(userId, "captcha_expired", nil), true)
		t.removeUnverified(ch.ChatID, userId)

	case correct:
		t.answerCallback(cq, t.lang.GetText(userId, "captcha_correct", nil), false)
		t.completeVerification(ch, cq.From)

	default:
		t.answerCallback(cq, t.lang.GetText(userId, "captcha_wrong", nil), true)
		t.log.Info("verification failed", sl.User(userId))
		t.removeUnverified(ch.ChatID, userId)
	}
	return nil
}

func (t *TgBot) onPageCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	action, err := ParseAction(cq.Data)
	if err != nil {
		t.log.Error("page callback", sl.User(userId), sl.Err(err))
		t.answerCallback(cq, "", false)
		return nil
	}

	page, err := t.invite.PaginatedMembers(userId, action.Page)
	if err != nil {
		t.reportError(callbackChatId(cq, userId), userId, "stats:page", err)
		return nil
	}

	if msg, ok := callbackMessage(cq); ok {
		_, _, _ = t.api.EditMessageText(t.memberPageText(userId, page), &tgbotapi.EditMessageTextOpts{
			ChatId:      msg.Chat.Id,
			MessageId:   msg.MessageId,
			ReplyMarkup: buildPagerKeyboard(page),
		})
	}
	t.answerCallback(cq, "", false)
	return nil
}

func (t *TgBot) onRankingCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	userId := cq.From.Id

	action, err := ParseAction(cq.Data)
	if err != nil {
		t.log.Error("ranking callback", sl.User(userId), sl.Err(err))
		t.answerCallback(cq, "", false)
		return nil
	}

	text, err := t.rankingText(userId, action.Ranking)
	if err != nil {
		t.reportError(callbackChatId(cq, userId), userId, "ranking:switch", err)
		return nil
	}

	if msg, ok := callbackMessage(cq); ok {
		_, _, _ = t.api.EditMessageText(text, &tgbotapi.EditMessageTextOpts{
			ChatId:      msg.Chat.Id,
			MessageId:   msg.MessageId,
			ReplyMarkup: t.buildRankingKeyboard(userId, action.Ranking),
		})
	}
	t.answerCallback(cq, "", false)
	return nil
}

func (t *TgBot) onNoopCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	t.answerCallback(ctx.CallbackQuery, "", false)
	return nil
}

// --- captcha flow ---

// sendChallenge issues a fresh challenge and posts the three prompt
// messages: intro text, question image and the answer keyboard. All
// three are recorded on the challenge row and scheduled for deletion
// when the window closes.
func (t *TgBot) sendChallenge(chatId, userId int64) {
	ch, err := t.verify.Create(userId, chatId)
	if err != nil {
		t.reportError(chatId, userId, "captcha:create", err)
		return
	}

	var promptId, imageId, choiceId int64

	intro := t.lang.GetText(userId, "captcha_intro", nil)
	if msg, err := t.api.SendMessage(chatId, intro, nil); err == nil {
		promptId = msg.MessageId
	} else {
		t.log.Error("sending captcha intro", sl.User(userId), sl.Err(err))
	}

	// the question goes out as an image; plain text when rendering
	// produced nothing
	if len(ch.Image) > 0 {
		msg, err := t.api.SendPhoto(chatId, tgbotapi.InputFileByReader("captcha.png", imageReader(ch.Image)), nil)
		if err == nil {
			imageId = msg.MessageId
		} else {
			t.log.Error("sending captcha image", sl.User(userId), sl.Err(err))
		}
	}
	if imageId == 0 {
		if msg, err := t.api.SendMessage(chatId, ch.Question, nil); err == nil {
			imageId = msg.MessageId
		}
	}

	choice := t.lang.GetText(userId, "captcha_choose", nil)
	if msg, err := t.api.SendMessage(chatId, choice, &tgbotapi.SendMessageOpts{
		ReplyMarkup: buildCaptchaKeyboard(ch),
	}); err == nil {
		choiceId = msg.MessageId
	} else {
		t.log.Error("sending captcha keyboard", sl.User(userId), sl.Err(err))
	}

	if err := t.verify.AttachMessages(ch.ID, promptId, imageId, choiceId); err != nil {
		t.log.Error("attach challenge messages", sl.User(userId), sl.Err(err))
	}
	for _, id := range []int64{promptId, imageId, choiceId} {
		t.scheduleMessageDelete(chatId, id, t.config.ChallengeTimeout)
	}
}

// completeVerification lifts the restriction and cleans up the prompts
// after a correct answer.
func (t *TgBot) completeVerification(ch *entity.Challenge, from tgbotapi.User) {
	userId := ch.UserID
	if err := t.verify.MarkVerified(userId); err != nil {
		t.reportError(ch.ChatID, userId, "captcha:mark", err)
		return
	}
	t.cancelTimeout(userId)
	t.grantUser(ch.ChatID, userId)

	t.deleteMessage(ch.ChatID, ch.PromptMsgID)
	t.deleteMessage(ch.ChatID, ch.ImageMsgID)
	t.deleteMessage(ch.ChatID, ch.ChoiceMsgID)

	welcome := t.lang.GetText(userId, "welcome_verified", map[string]string{
		"name": displayName(&from),
	})
	t.plainResponse(ch.ChatID, welcome)
	t.log.Info("user verified", sl.User(userId))
}
