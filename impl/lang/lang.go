package lang

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"sync"

	"groupwarden/entity"
	"groupwarden/lib/sl"
	"groupwarden/lib/validate"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Store is the slice of the database layer this service needs.
type Store interface {
	UpsertLanguage(lang *entity.Language, translations string) error
	SetUserLanguage(userId int64, code string) error
	UserLanguage(userId int64) (string, error)
}

// Service resolves translation keys for users. The JSON catalog file is
// the source of truth; it is loaded once at startup, validated and
// mirrored into the languages table so external tools can read it.
type Service struct {
	store       Store
	defaultLang string
	languages   map[string]*entity.Language
	log         *slog.Logger
	mu          sync.RWMutex
}

func New(store Store, defaultLang string, log *slog.Logger) *Service {
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Service{
		store:       store,
		defaultLang: defaultLang,
		languages:   make(map[string]*entity.Language),
		log:         log.With(sl.Module("impl.lang")),
	}
}

// LoadCatalog reads and validates the languages file. The default
// language must be present; a catalog without it is a startup error.
func (s *Service) LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var catalog []*entity.Language
	if err = json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	loaded := make(map[string]*entity.Language, len(catalog))
	for _, l := range catalog {
		if err = validate.Struct(l); err != nil {
			return fmt.Errorf("language %s: %w", l.Code, err)
		}
		loaded[l.Code] = l
	}
	if _, ok := loaded[s.defaultLang]; !ok {
		return fmt.Errorf("catalog has no default language %s", s.defaultLang)
	}

	s.mu.Lock()
	s.languages = loaded
	s.mu.Unlock()
	s.log.Info("language catalog loaded", slog.Int("languages", len(loaded)))
	return nil
}

// SyncToDB mirrors the loaded catalog into the languages table.
func (s *Service) SyncToDB() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.languages {
		translations, err := json.Marshal(l.Translations)
		if err != nil {
			return fmt.Errorf("encode translations %s: %w", l.Code, err)
		}
		if err = s.store.UpsertLanguage(l, string(translations)); err != nil {
			return fmt.Errorf("store language %s: %w", l.Code, err)
		}
	}
	return nil
}

// GetText resolves a key in the user's stored language.
func (s *Service) GetText(userId int64, key string, params map[string]string) string {
	code, err := s.store.UserLanguage(userId)
	if err != nil {
		s.log.Error("load user language", sl.User(userId), sl.Err(err))
		code = ""
	}
	return s.GetTextByLang(code, key, params)
}

// GetTextByLang resolves a key with the fallback chain: requested
// language, then the default language, then the literal key itself, so
// a missing translation never hides a message.
func (s *Service) GetTextByLang(code, key string, params map[string]string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, ok := s.lookup(code, key)
	if !ok {
		template, ok = s.lookup(s.defaultLang, key)
	}
	if !ok {
		s.log.Warn("missing translation", slog.String("key", key), slog.String("lang", code))
		template = key
	}
	return s.substitute(template, key, params)
}

func (s *Service) lookup(code, key string) (string, bool) {
	l, ok := s.languages[code]
	if !ok {
		return "", false
	}
	text, ok := l.Translations[key]
	return text, ok
}

// substitute replaces {name}-style placeholders. A placeholder with no
// matching parameter is left verbatim and logged once per call.
func (s *Service) substitute(template, key string, params map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := params[name]; ok {
			return value
		}
		s.log.Warn("missing template parameter",
			slog.String("key", key), slog.String("param", name))
		return match
	})
}

// SetUserLanguage stores the user's choice after validating it against
// the catalog.
func (s *Service) SetUserLanguage(userId int64, code string) error {
	s.mu.RLock()
	l, ok := s.languages[code]
	s.mu.RUnlock()
	if !ok || !l.IsActive {
		return fmt.Errorf("unsupported language: %s", code)
	}
	return s.store.SetUserLanguage(userId, code)
}

// UserLanguage returns the user's stored language, or the default when
// none is stored.
func (s *Service) UserLanguage(userId int64) string {
	code, err := s.store.UserLanguage(userId)
	if err != nil || code == "" {
		return s.defaultLang
	}
	return code
}

// AvailableLanguages lists the active catalog entries sorted by code,
// for the language keyboard.
func (s *Service) AvailableLanguages() []*entity.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Language, 0, len(s.languages))
	for _, l := range s.languages {
		if l.IsActive {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
