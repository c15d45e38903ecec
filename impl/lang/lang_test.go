package lang

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwarden/entity"
)

type fakeStore struct {
	langs     map[string]string
	userLangs map[int64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		langs:     make(map[string]string),
		userLangs: make(map[int64]string),
	}
}

func (f *fakeStore) UpsertLanguage(lang *entity.Language, translations string) error {
	f.langs[lang.Code] = translations
	return nil
}

func (f *fakeStore) SetUserLanguage(userId int64, code string) error {
	f.userLangs[userId] = code
	return nil
}

func (f *fakeStore) UserLanguage(userId int64) (string, error) {
	return f.userLangs[userId], nil
}

const testCatalog = `[
  {
    "code": "en",
    "name": "English",
    "country": "United Kingdom",
    "is_active": true,
    "translations": {
      "welcome": "Welcome, {name}!",
      "only_english": "English only",
      "both": "Hello"
    }
  },
  {
    "code": "es",
    "name": "Español",
    "country": "Spain",
    "is_active": true,
    "translations": {
      "welcome": "¡Bienvenido, {name}!",
      "both": "Hola"
    }
  },
  {
    "code": "xx",
    "name": "Disabled",
    "is_active": false,
    "translations": {
      "both": "..."
    }
  }
]`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "languages.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	svc := New(store, "en", slog.Default())
	require.NoError(t, svc.LoadCatalog(writeCatalog(t, testCatalog)))
	return svc
}

func TestLoadCatalogRequiresDefaultLanguage(t *testing.T) {
	svc := New(newFakeStore(), "de", slog.Default())
	err := svc.LoadCatalog(writeCatalog(t, testCatalog))
	assert.Error(t, err)
}

func TestLoadCatalogRejectsInvalidEntry(t *testing.T) {
	svc := New(newFakeStore(), "en", slog.Default())
	err := svc.LoadCatalog(writeCatalog(t, `[{"code":"e","name":"","translations":null}]`))
	assert.Error(t, err)
}

func TestGetTextByLang(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	assert.Equal(t, "Hola", svc.GetTextByLang("es", "both", nil))
	assert.Equal(t, "Hello", svc.GetTextByLang("en", "both", nil))
}

func TestGetTextFallsBackToDefault(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	// key only present in the default language
	assert.Equal(t, "English only", svc.GetTextByLang("es", "only_english", nil))
	// unknown language falls back entirely
	assert.Equal(t, "Hello", svc.GetTextByLang("fr", "both", nil))
}

func TestGetTextFallsBackToKey(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	assert.Equal(t, "no_such_key", svc.GetTextByLang("en", "no_such_key", nil))
}

func TestGetTextSubstitutesParams(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	got := svc.GetTextByLang("es", "welcome", map[string]string{"name": "Ana"})
	assert.Equal(t, "¡Bienvenido, Ana!", got)
}

func TestGetTextKeepsUnresolvedPlaceholder(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	got := svc.GetTextByLang("en", "welcome", nil)
	assert.Equal(t, "Welcome, {name}!", got)
}

func TestGetTextUsesStoredUserLanguage(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	require.NoError(t, svc.SetUserLanguage(5, "es"))
	assert.Equal(t, "Hola", svc.GetText(5, "both", nil))
	// a user with no stored language gets the default
	assert.Equal(t, "Hello", svc.GetText(6, "both", nil))
}

func TestSetUserLanguageValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	assert.Error(t, svc.SetUserLanguage(1, "fr"), "unknown language")
	assert.Error(t, svc.SetUserLanguage(1, "xx"), "inactive language")
	assert.NoError(t, svc.SetUserLanguage(1, "es"))
	assert.Equal(t, "es", store.userLangs[1])
}

func TestAvailableLanguages(t *testing.T) {
	svc := newTestService(t, newFakeStore())

	langs := svc.AvailableLanguages()
	require.Len(t, langs, 2, "inactive entries are hidden")
	assert.Equal(t, "en", langs[0].Code)
	assert.Equal(t, "es", langs[1].Code)
}

func TestSyncToDB(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)

	require.NoError(t, svc.SyncToDB())
	assert.Len(t, store.langs, 3)
	assert.Contains(t, store.langs["es"], "Bienvenido")
}

func TestLanguageLabel(t *testing.T) {
	l := &entity.Language{Code: "es", Name: "Español", Country: "Spain"}
	assert.Equal(t, "🇪🇸 Español", l.Label())

	plain := &entity.Language{Code: "xx", Name: "Plain"}
	assert.Equal(t, "Plain", plain.Label())
}
