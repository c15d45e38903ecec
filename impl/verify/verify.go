package verify

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"groupwarden/entity"
	"groupwarden/impl/captcha"
	"groupwarden/lib/sl"
)

// Store is the slice of the database layer this service needs.
type Store interface {
	ChallengeById(id int64) (*entity.Challenge, error)
	ActiveChallengeByUser(userId int64, now time.Time) (*entity.Challenge, error)
	CreateChallenge(ch *entity.Challenge) (int64, error)
	DeleteUnsolvedChallenges(userId int64) error
	SaveChallengeAttempt(ch *entity.Challenge) error
	SetChallengeMessages(id, promptMsgId, imageMsgId, choiceMsgId int64) error
	DeleteExpiredChallenges(now time.Time) (int64, error)
	MarkUserVerified(userId int64) error
	IsUserVerified(userId int64) (bool, error)
}

// Service owns the verification lifecycle: issuing challenges, grading
// the single allowed attempt and expiring the stale ones.
type Service struct {
	store       Store
	gen         *captcha.Generator
	timeout     time.Duration
	maxAttempts int
	log         *slog.Logger
}

func New(store Store, timeout time.Duration, maxAttempts int, log *slog.Logger) *Service {
	if maxAttempts > 1 {
		log.Warn("max_attempts above 1 is not honored, grading stays single-attempt",
			slog.Int("max_attempts", maxAttempts))
	}
	return &Service{
		store:       store,
		gen:         captcha.NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano()))),
		timeout:     timeout,
		maxAttempts: maxAttempts,
		log:         log.With(sl.Module("impl.verify")),
	}
}

// Create issues a fresh challenge for the user, replacing any unsolved
// one so at most a single live challenge exists.
func (s *Service) Create(userId, chatId int64) (*entity.Challenge, error) {
	if err := s.store.DeleteUnsolvedChallenges(userId); err != nil {
		return nil, fmt.Errorf("replace previous challenge: %w", err)
	}

	problem := s.gen.Generate()
	now := time.Now()
	ch := &entity.Challenge{
		UserID:        userId,
		ChatID:        chatId,
		Question:      problem.Question,
		CorrectAnswer: problem.CorrectLetter,
		Options:       entity.EncodeOptions(problem.Options),
		Image:         s.gen.RenderImage(problem.Question),
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.timeout),
	}

	id, err := s.store.CreateChallenge(ch)
	if err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}
	ch.ID = id
	return ch, nil
}

// Active returns the user's live challenge, or nil.
func (s *Service) Active(userId int64) (*entity.Challenge, error) {
	return s.store.ActiveChallengeByUser(userId, time.Now())
}

// ByID loads one challenge row regardless of state.
func (s *Service) ByID(id int64) (*entity.Challenge, error) {
	return s.store.ChallengeById(id)
}

// AttachMessages records the ids of the sent prompt messages on the
// challenge row so cleanup survives a restart.
func (s *Service) AttachMessages(id, promptMsgId, imageMsgId, choiceMsgId int64) error {
	return s.store.SetChallengeMessages(id, promptMsgId, imageMsgId, choiceMsgId)
}

// Verify grades one answer against the stored challenge. Exactly one
// attempt counts; anything after it is a no-op. Returning expired=true
// means the challenge timed out before the answer arrived.
func (s *Service) Verify(challengeId int64, answer string) (correct bool, remaining int, expired bool, err error) {
	ch, err := s.store.ChallengeById(challengeId)
	if err != nil {
		return false, 0, false, fmt.Errorf("load challenge: %w", err)
	}
	if ch == nil {
		return false, 0, true, nil
	}
	if ch.Expired(time.Now()) {
		return false, 0, true, nil
	}
	if ch.IsSolved {
		return true, 0, false, nil
	}
	if ch.Attempts > 0 {
		return false, 0, false, nil
	}

	ch.Attempts = 1
	ch.UserAnswer = strings.TrimSpace(answer)
	if strings.EqualFold(ch.UserAnswer, ch.CorrectAnswer) {
		now := time.Now()
		ch.IsSolved = true
		ch.SolvedAt = &now
		correct = true
	}

	if err = s.store.SaveChallengeAttempt(ch); err != nil {
		return false, 0, false, fmt.Errorf("save attempt: %w", err)
	}
	return correct, 0, false, nil
}

// MarkVerified flags the user verified after a solved challenge.
func (s *Service) MarkVerified(userId int64) error {
	return s.store.MarkUserVerified(userId)
}

func (s *Service) IsVerified(userId int64) (bool, error) {
	return s.store.IsUserVerified(userId)
}

// CleanupExpired removes timed-out unsolved challenges; ran periodically
// by the scheduler.
func (s *Service) CleanupExpired() {
	removed, err := s.store.DeleteExpiredChallenges(time.Now())
	if err != nil {
		s.log.Error("cleanup expired challenges", sl.Err(err))
		return
	}
	if removed > 0 {
		s.log.Info("removed expired challenges", slog.Int64("count", removed))
	}
}
