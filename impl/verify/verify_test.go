package verify

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwarden/entity"
)

type fakeStore struct {
	challenges map[int64]*entity.Challenge
	verified   map[int64]bool
	nextId     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		challenges: make(map[int64]*entity.Challenge),
		verified:   make(map[int64]bool),
	}
}

func (f *fakeStore) ChallengeById(id int64) (*entity.Challenge, error) {
	ch, ok := f.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeStore) ActiveChallengeByUser(userId int64, now time.Time) (*entity.Challenge, error) {
	for _, ch := range f.challenges {
		if ch.UserID == userId && !ch.IsSolved && ch.ExpiresAt.After(now) {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateChallenge(ch *entity.Challenge) (int64, error) {
	f.nextId++
	cp := *ch
	cp.ID = f.nextId
	f.challenges[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeStore) DeleteUnsolvedChallenges(userId int64) error {
	for id, ch := range f.challenges {
		if ch.UserID == userId && !ch.IsSolved {
			delete(f.challenges, id)
		}
	}
	return nil
}

func (f *fakeStore) SaveChallengeAttempt(ch *entity.Challenge) error {
	stored, ok := f.challenges[ch.ID]
	if ok {
		stored.Attempts = ch.Attempts
		stored.UserAnswer = ch.UserAnswer
		stored.IsSolved = ch.IsSolved
		stored.SolvedAt = ch.SolvedAt
	}
	return nil
}

func (f *fakeStore) SetChallengeMessages(id, promptMsgId, imageMsgId, choiceMsgId int64) error {
	if ch, ok := f.challenges[id]; ok {
		ch.PromptMsgID = promptMsgId
		ch.ImageMsgID = imageMsgId
		ch.ChoiceMsgID = choiceMsgId
	}
	return nil
}

func (f *fakeStore) DeleteExpiredChallenges(now time.Time) (int64, error) {
	var removed int64
	for id, ch := range f.challenges {
		if !ch.IsSolved && !ch.ExpiresAt.After(now) {
			delete(f.challenges, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeStore) MarkUserVerified(userId int64) error {
	f.verified[userId] = true
	return nil
}

func (f *fakeStore) IsUserVerified(userId int64) (bool, error) {
	return f.verified[userId], nil
}

func newTestService(store Store) *Service {
	return New(store, 5*time.Minute, 1, slog.Default())
}

func TestCreateReplacesUnsolvedChallenge(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	first, err := svc.Create(100, -200)
	require.NoError(t, err)
	second, err := svc.Create(100, -200)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	gone, err := store.ChallengeById(first.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	active, err := svc.Active(100)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
}

func TestCreatePopulatesChallenge(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ch, err := svc.Create(7, -42)
	require.NoError(t, err)
	assert.NotEmpty(t, ch.Question)
	assert.Contains(t, []string{"A", "B", "C", "D"}, ch.CorrectAnswer)
	assert.Len(t, ch.OptionValues(), 4)
	assert.True(t, ch.ExpiresAt.After(time.Now()))
}

func TestVerifyCorrectAnswer(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ch, err := svc.Create(1, -2)
	require.NoError(t, err)

	correct, remaining, expired, err := svc.Verify(ch.ID, ch.CorrectAnswer)
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Zero(t, remaining)
	assert.False(t, expired)

	saved, _ := store.ChallengeById(ch.ID)
	assert.True(t, saved.IsSolved)
	assert.NotNil(t, saved.SolvedAt)
	assert.Equal(t, 1, saved.Attempts)
}

func TestVerifyIsCaseInsensitiveAndTrimmed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ch, err := svc.Create(1, -2)
	require.NoError(t, err)

	answer := "  " + string(ch.CorrectAnswer[0]|0x20) + " "
	correct, _, _, err := svc.Verify(ch.ID, answer)
	require.NoError(t, err)
	assert.True(t, correct)
}

func TestVerifyWrongAnswerConsumesOnlyAttempt(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ch, err := svc.Create(1, -2)
	require.NoError(t, err)

	wrong := "A"
	if ch.CorrectAnswer == "A" {
		wrong = "B"
	}

	correct, remaining, expired, err := svc.Verify(ch.ID, wrong)
	require.NoError(t, err)
	assert.False(t, correct)
	assert.Zero(t, remaining)
	assert.False(t, expired)

	// a later correct answer no longer counts
	correct, _, expired, err = svc.Verify(ch.ID, ch.CorrectAnswer)
	require.NoError(t, err)
	assert.False(t, correct)
	assert.False(t, expired)

	saved, _ := store.ChallengeById(ch.ID)
	assert.Equal(t, 1, saved.Attempts)
	assert.Equal(t, wrong, saved.UserAnswer)
}

func TestVerifySolvedChallengeStaysSolved(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ch, err := svc.Create(1, -2)
	require.NoError(t, err)

	_, _, _, err = svc.Verify(ch.ID, ch.CorrectAnswer)
	require.NoError(t, err)

	correct, _, expired, err := svc.Verify(ch.ID, "Z")
	require.NoError(t, err)
	assert.True(t, correct)
	assert.False(t, expired)
}

func TestVerifyExpiredChallenge(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ch, err := svc.Create(1, -2)
	require.NoError(t, err)
	store.challenges[ch.ID].ExpiresAt = time.Now().Add(-time.Second)

	correct, _, expired, err := svc.Verify(ch.ID, ch.CorrectAnswer)
	require.NoError(t, err)
	assert.False(t, correct)
	assert.True(t, expired)

	// expiry is checked before the solved state
	saved, _ := store.ChallengeById(ch.ID)
	assert.Zero(t, saved.Attempts)
}

func TestVerifyMissingChallengeReportsExpired(t *testing.T) {
	svc := newTestService(newFakeStore())

	correct, _, expired, err := svc.Verify(12345, "A")
	require.NoError(t, err)
	assert.False(t, correct)
	assert.True(t, expired)
}

func TestCleanupExpired(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	live, err := svc.Create(1, -2)
	require.NoError(t, err)
	stale, err := svc.Create(2, -2)
	require.NoError(t, err)
	store.challenges[stale.ID].ExpiresAt = time.Now().Add(-time.Minute)

	svc.CleanupExpired()

	gone, _ := store.ChallengeById(stale.ID)
	assert.Nil(t, gone)
	kept, _ := store.ChallengeById(live.ID)
	assert.NotNil(t, kept)
}

func TestMarkVerified(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	ok, err := svc.IsVerified(9)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.MarkVerified(9))
	ok, err = svc.IsVerified(9)
	require.NoError(t, err)
	assert.True(t, ok)
}
