// Package i18n holds the user-facing message catalog. A default catalog is
// embedded into the binary; Load can override it from a JSON file of the
// same shape: map[language_code]map[message_id]message. Messages may contain
// {{arg}} placeholders.
package i18n

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"errors"

	"github.com/valyala/fasttemplate"
)

var ErrNotFound = errors.New("not found")

//go:embed translations.json
var defaultTranslations []byte

type translation struct {
	template *fasttemplate.Template
	text     string
}

func (t *translation) UnmarshalJSON(data []byte) error {
	var text string
	err := json.Unmarshal(data, &text)
	if err != nil {
		return err
	}
	t.text = text
	t.template, err = fasttemplate.NewTemplate(text, "{{", "}}")
	return err
}

type Localies struct {
	mu  *sync.RWMutex
	cms map[string]map[string]*translation // map[language_code]map[message_id]message
}

// New returns a catalog populated with the embedded defaults.
func New() *Localies {
	l := &Localies{
		mu: &sync.RWMutex{},
	}
	// embedded catalog is validated by tests, decoding can't fail at runtime
	_ = l.load(defaultTranslations)
	return l
}

// Load replaces the catalog with translations from path.
func (l *Localies) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return l.load(data)
}

func (l *Localies) load(data []byte) error {
	var translations map[string]map[string]*translation
	if err := json.Unmarshal(data, &translations); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cms = translations
	return nil
}

func (l *Localies) Get(lang, id string) (string, error) {
	translation, ok := l.get(lang, id)
	if !ok {
		return "", ErrNotFound
	}
	return translation.text, nil
}

// MustGet falls back to the message id when the translation is missing,
// so a stale catalog never hides a notification entirely.
func (l *Localies) MustGet(lang, id string) string {
	text, err := l.Get(lang, id)
	if err != nil {
		return id
	}
	return text
}

func (l *Localies) GetWithArgs(lang, id string, args map[string]string) (string, error) {
	translation, ok := l.get(lang, id)
	if !ok {
		return "", ErrNotFound
	}
	return translation.template.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		value, ok := args[tag]
		if !ok {
			return 0, fmt.Errorf("missing argument %s", tag)
		}
		return w.Write([]byte(value))
	})
}

func (l *Localies) get(lang, id string) (*translation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	langMap, ok := l.cms[lang]
	if !ok {
		return nil, false
	}
	translation, ok := langMap[id]
	return translation, ok
}
