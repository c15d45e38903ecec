package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwarden/entity"
)

func TestParseActionLanguage(t *testing.T) {
	a, err := ParseAction("lg:es:42")
	require.NoError(t, err)
	assert.Equal(t, ActionLanguage, a.Kind)
	assert.Equal(t, "es", a.Language)
	assert.Equal(t, int64(42), a.TargetUser)

	for _, data := range []string{"lg:", "lg:es", "lg::42", "lg:es:x", "lg:es:0", "lg:es:-5", "lg:es:42:extra"} {
		_, err = ParseAction(data)
		assert.Error(t, err, data)
	}
}

func TestLanguageActionBindsTargetUser(t *testing.T) {
	first := languageAction("en", 42)
	second := languageAction("en", 99)
	assert.NotEqual(t, first, second)

	a, err := ParseAction(first)
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.TargetUser)

	b, err := ParseAction(second)
	require.NoError(t, err)
	assert.Equal(t, int64(99), b.TargetUser)
}

func TestParseActionCaptcha(t *testing.T) {
	a, err := ParseAction("cp:42:B")
	require.NoError(t, err)
	assert.Equal(t, ActionCaptcha, a.Kind)
	assert.Equal(t, int64(42), a.ChallengeID)
	assert.Equal(t, "B", a.Answer)

	for _, data := range []string{"cp:42", "cp:x:B", "cp:-1:B", "cp:42:", "cp:42:B:C"} {
		_, err = ParseAction(data)
		assert.Error(t, err, data)
	}
}

func TestParseActionPage(t *testing.T) {
	a, err := ParseAction("pg:3")
	require.NoError(t, err)
	assert.Equal(t, ActionPage, a.Kind)
	assert.Equal(t, 3, a.Page)

	_, err = ParseAction("pg:x")
	assert.Error(t, err)
}

func TestParseActionRanking(t *testing.T) {
	a, err := ParseAction("rk:active")
	require.NoError(t, err)
	assert.Equal(t, ActionRanking, a.Kind)
	assert.Equal(t, entity.RankingActive, a.Ranking)

	_, err = ParseAction("rk:weekly")
	assert.Error(t, err)
}

func TestParseActionNoop(t *testing.T) {
	a, err := ParseAction("noop")
	require.NoError(t, err)
	assert.Equal(t, ActionNoop, a.Kind)
}

func TestParseActionUnknown(t *testing.T) {
	_, err := ParseAction("zz:1")
	assert.Error(t, err)
}

func TestActionRoundTrip(t *testing.T) {
	a, err := ParseAction(captchaAction(7, "D"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ChallengeID)
	assert.Equal(t, "D", a.Answer)

	a, err = ParseAction(pageAction(12))
	require.NoError(t, err)
	assert.Equal(t, 12, a.Page)

	a, err = ParseAction(languageAction("en", 42))
	require.NoError(t, err)
	assert.Equal(t, "en", a.Language)
	assert.Equal(t, int64(42), a.TargetUser)

	a, err = ParseAction(rankingAction(entity.RankingTotal))
	require.NoError(t, err)
	assert.Equal(t, entity.RankingTotal, a.Ranking)
}
