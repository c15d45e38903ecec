package bot

import (
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusPresent(t *testing.T) {
	for _, status := range []string{"creator", "administrator", "member", "restricted"} {
		assert.True(t, statusPresent(status), status)
	}
	for _, status := range []string{"left", "kicked"} {
		assert.False(t, statusPresent(status), status)
	}
}

func TestCallbackChatId(t *testing.T) {
	cq := &tgbotapi.CallbackQuery{
		Message: tgbotapi.Message{
			MessageId: 7,
			Chat:      tgbotapi.Chat{Id: -100123},
		},
	}
	assert.Equal(t, int64(-100123), callbackChatId(cq, 42))

	// inaccessible source message falls back to the given chat
	assert.Equal(t, int64(42), callbackChatId(&tgbotapi.CallbackQuery{}, 42))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 32))
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))

	// cutting inside a multi-byte character must not happen
	got := truncateRunes("via Пётр Иванович Крузенштерн", 10)
	assert.Equal(t, "via Пётр И", got)
	assert.True(t, utf8.ValidString(got))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "@bob", displayName(&tgbotapi.User{Username: "bob", FirstName: "Bob"}))
	assert.Equal(t, "Bob", displayName(&tgbotapi.User{FirstName: "Bob"}))
	assert.Equal(t, "User", displayName(&tgbotapi.User{}))
}
