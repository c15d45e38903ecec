package bot

import (
	"fmt"
	"strconv"
	"strings"

	"groupwarden/entity"
)

// Callback data prefixes for inline keyboard buttons.
// Telegram limits callback data to 64 bytes, so prefixes are kept short.
// Format: prefix + value (e.g., "lg:en:42", "cp:42:B", "pg:3").
const (
	cbLanguage = "lg:" // lg:<code>:<target user id>
	cbCaptcha  = "cp:" // cp:<challenge_id>:<letter>
	cbPage     = "pg:" // pg:<page>
	cbRanking  = "rk:" // rk:total, rk:active
	cbNoop     = "noop"
)

type ActionKind int

const (
	ActionLanguage ActionKind = iota
	ActionCaptcha
	ActionPage
	ActionRanking
	ActionNoop
)

// Action is a parsed callback payload. Raw callback strings are decoded
// once at the dispatch boundary; handlers never look at the wire format.
type Action struct {
	Kind        ActionKind
	Language    string
	TargetUser  int64 // the only user allowed to press a language button
	ChallengeID int64
	Answer      string
	Page        int
	Ranking     entity.RankingKind
}

// ParseAction decodes callback data into a typed Action. Malformed data
// is an error, not a silent fallback, so broken keyboards surface in
// logs instead of doing the wrong thing.
func ParseAction(data string) (*Action, error) {
	switch {
	case data == cbNoop:
		return &Action{Kind: ActionNoop}, nil

	case strings.HasPrefix(data, cbLanguage):
		parts := strings.Split(strings.TrimPrefix(data, cbLanguage), ":")
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("malformed language callback: %s", data)
		}
		target, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || target <= 0 {
			return nil, fmt.Errorf("bad target user in callback: %s", data)
		}
		return &Action{Kind: ActionLanguage, Language: parts[0], TargetUser: target}, nil

	case strings.HasPrefix(data, cbCaptcha):
		parts := strings.Split(strings.TrimPrefix(data, cbCaptcha), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed captcha callback: %s", data)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad challenge id in callback: %s", data)
		}
		if parts[1] == "" {
			return nil, fmt.Errorf("empty answer in callback: %s", data)
		}
		return &Action{Kind: ActionCaptcha, ChallengeID: id, Answer: parts[1]}, nil

	case strings.HasPrefix(data, cbPage):
		page, err := strconv.Atoi(strings.TrimPrefix(data, cbPage))
		if err != nil {
			return nil, fmt.Errorf("bad page in callback: %s", data)
		}
		return &Action{Kind: ActionPage, Page: page}, nil

	case strings.HasPrefix(data, cbRanking):
		kind := entity.RankingKind(strings.TrimPrefix(data, cbRanking))
		if !kind.Valid() {
			return nil, fmt.Errorf("bad ranking kind in callback: %s", data)
		}
		return &Action{Kind: ActionRanking, Ranking: kind}, nil
	}
	return nil, fmt.Errorf("unknown callback data: %s", data)
}

func languageAction(code string, targetUser int64) string {
	return cbLanguage + code + ":" + strconv.FormatInt(targetUser, 10)
}

func captchaAction(challengeId int64, letter string) string {
	return cbCaptcha + strconv.FormatInt(challengeId, 10) + ":" + letter
}

func pageAction(page int) string {
	return cbPage + strconv.Itoa(page)
}

func rankingAction(kind entity.RankingKind) string {
	return cbRanking + string(kind)
}
