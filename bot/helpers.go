package bot

import (
	"bytes"
	"io"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"groupwarden/lib/sl"
)

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}
	_, err := t.api.SendMessage(chatId, text, nil)
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
	}
}

// sendWithKeyboard sends a message with an inline keyboard attached.
func (t *TgBot) sendWithKeyboard(chatId int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message with keyboard", sl.Err(err))
	}
}

func (t *TgBot) deleteMessage(chatId, messageId int64) {
	if chatId == 0 || messageId == 0 {
		return
	}
	// already-deleted messages are not an error worth reporting
	if _, err := t.api.DeleteMessage(chatId, messageId, nil); err != nil {
		t.log.Debug("deleting message",
			slog.Int64("chat", chatId), slog.Int64("message", messageId), sl.Err(err))
	}
}

func (t *TgBot) answerCallback(cq *tgbotapi.CallbackQuery, text string, alert bool) {
	_, err := cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{
		Text:      text,
		ShowAlert: alert,
	})
	if err != nil {
		t.log.Debug("answering callback", sl.Err(err))
	}
}

// callbackMessage extracts the concrete source message of a callback
// query when Telegram still has it accessible.
func callbackMessage(cq *tgbotapi.CallbackQuery) (tgbotapi.Message, bool) {
	if cq.Message == nil {
		return tgbotapi.Message{}, false
	}
	msg, ok := cq.Message.(tgbotapi.Message)
	return msg, ok
}

func displayName(user *tgbotapi.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	return "User"
}

func imageReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

// callbackChatId resolves the chat a callback query came from, falling
// back when the source message is no longer accessible.
func callbackChatId(cq *tgbotapi.CallbackQuery, fallback int64) int64 {
	if msg, ok := callbackMessage(cq); ok {
		return msg.Chat.Id
	}
	return fallback
}

// truncateRunes shortens s to at most max runes without splitting a
// multi-byte character.
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// reportError logs the failure and sends a neutral message, localized
// for the user, to the chat the command came from.
func (t *TgBot) reportError(chatId, userId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		slog.Int64("chat", chatId),
		sl.User(userId),
		sl.Err(err),
	)
	t.plainResponse(chatId, t.lang.GetText(userId, "error_generic", nil))
}
