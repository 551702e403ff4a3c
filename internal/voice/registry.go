// Package voice holds the language and voice tables used to turn a
// (speaker, language) pair into a provider voice identifier.
//
// A [Registry] is built once at startup and is read-only afterwards. All
// methods are safe for concurrent use without synchronisation.
//
// Voice resolution policy: an unknown speaker fails with a not-found error.
// A known speaker without an entry for the requested language falls back to
// the voice of the speaker's default language (the per-speaker default, or
// the registry default when the speaker has none). When that voice is absent
// as well, resolution fails with a not-found error.
package voice

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MrWong99/nexusvoice/internal/fault"
)

// Language describes one supported language.
type Language struct {
	// Code is the short language code used on the wire (e.g. "en").
	Code string `json:"code" yaml:"code"`

	// Name is the English display name (e.g. "English").
	Name string `json:"name" yaml:"name"`

	// Flag is a display glyph, usually a flag emoji.
	Flag string `json:"flag" yaml:"flag"`
}

// Speaker maps one named speaker to a voice per language.
type Speaker struct {
	// Name is the speaker name used in conversation scripts.
	Name string `yaml:"name"`

	// DefaultLanguage is the language whose voice is used when the requested
	// language has no entry. Empty means the registry default.
	DefaultLanguage string `yaml:"default_language"`

	// Voices maps language code to provider voice ID.
	Voices map[string]string `yaml:"voices"`
}

// Config is the input to [New].
type Config struct {
	Languages       []Language `yaml:"languages"`
	Speakers        []Speaker  `yaml:"speakers"`
	DefaultLanguage string     `yaml:"default_language"`
	DefaultSpeaker  string     `yaml:"default_speaker"`
}

// Registry resolves languages and voices. The zero value is not usable;
// construct with [New] or [Default].
type Registry struct {
	languages       []Language
	byCode          map[string]Language
	speakers        map[string]Speaker
	folded          map[string]string // lower-cased name → canonical name
	names           []string
	defaultLanguage string
	defaultSpeaker  string
	suggest         *suggester
}

// New validates cfg and returns a [Registry]. All validation problems are
// reported together.
func New(cfg Config) (*Registry, error) {
	var errs []error

	r := &Registry{
		byCode:          make(map[string]Language, len(cfg.Languages)),
		speakers:        make(map[string]Speaker, len(cfg.Speakers)),
		folded:          make(map[string]string, len(cfg.Speakers)),
		defaultLanguage: cfg.DefaultLanguage,
		defaultSpeaker:  cfg.DefaultSpeaker,
	}

	if len(cfg.Languages) == 0 {
		errs = append(errs, errors.New("voice: at least one language is required"))
	}
	for i, l := range cfg.Languages {
		if l.Code == "" {
			errs = append(errs, fmt.Errorf("voice: languages[%d]: code is required", i))
			continue
		}
		if _, dup := r.byCode[l.Code]; dup {
			errs = append(errs, fmt.Errorf("voice: languages[%d]: duplicate code %q", i, l.Code))
			continue
		}
		if l.Name == "" {
			l.Name = l.Code
		}
		r.byCode[l.Code] = l
		r.languages = append(r.languages, l)
	}

	if r.defaultLanguage == "" {
		errs = append(errs, errors.New("voice: default language is required"))
	} else if _, ok := r.byCode[r.defaultLanguage]; !ok && len(r.byCode) > 0 {
		errs = append(errs, fmt.Errorf("voice: default language %q is not supported", r.defaultLanguage))
	}

	for i, s := range cfg.Speakers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("voice: speakers[%d]: name is required", i))
			continue
		}
		if _, dup := r.speakers[s.Name]; dup {
			errs = append(errs, fmt.Errorf("voice: speakers[%d]: duplicate speaker %q", i, s.Name))
			continue
		}
		if len(s.Voices) == 0 {
			errs = append(errs, fmt.Errorf("voice: speaker %q: at least one voice is required", s.Name))
		}
		for code, id := range s.Voices {
			if _, ok := r.byCode[code]; !ok {
				errs = append(errs, fmt.Errorf("voice: speaker %q: voice for unsupported language %q", s.Name, code))
			}
			if strings.TrimSpace(id) == "" {
				errs = append(errs, fmt.Errorf("voice: speaker %q: empty voice id for language %q", s.Name, code))
			}
		}
		if s.DefaultLanguage != "" {
			if _, ok := r.byCode[s.DefaultLanguage]; !ok {
				errs = append(errs, fmt.Errorf("voice: speaker %q: default language %q is not supported", s.Name, s.DefaultLanguage))
			}
		}

		voices := make(map[string]string, len(s.Voices))
		for k, v := range s.Voices {
			voices[k] = v
		}
		s.Voices = voices
		r.speakers[s.Name] = s
		r.names = append(r.names, s.Name)

		// The first registration wins a case-folded collision so exact
		// lookups stay unambiguous.
		if _, taken := r.folded[strings.ToLower(s.Name)]; !taken {
			r.folded[strings.ToLower(s.Name)] = s.Name
		}
	}

	if r.defaultSpeaker == "" {
		errs = append(errs, errors.New("voice: default speaker is required"))
	} else if _, ok := r.speakers[r.defaultSpeaker]; !ok {
		errs = append(errs, fmt.Errorf("voice: default speaker %q is not registered", r.defaultSpeaker))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	sort.Strings(r.names)
	r.suggest = newSuggester(r.names)
	return r, nil
}

// ResolveLanguage returns the [Language] for code.
func (r *Registry) ResolveLanguage(code string) (Language, error) {
	l, ok := r.byCode[code]
	if !ok {
		return Language{}, fault.NotSupported("voice.resolve_language", "unsupported language %q", code)
	}
	return l, nil
}

// ResolveVoice returns the voice ID for speaker in language. An empty
// language means the registry default.
func (r *Registry) ResolveVoice(speaker, language string) (string, error) {
	const op = "voice.resolve_voice"

	if language == "" {
		language = r.defaultLanguage
	}
	if _, err := r.ResolveLanguage(language); err != nil {
		return "", err
	}

	s, ok := r.lookupSpeaker(speaker)
	if !ok {
		if hint := r.suggest.closest(speaker); hint != "" {
			return "", fault.NotFound(op, "unknown speaker %q (did you mean %q?)", speaker, hint)
		}
		return "", fault.NotFound(op, "unknown speaker %q", speaker)
	}

	if id, ok := s.Voices[language]; ok {
		return id, nil
	}

	fallback := s.DefaultLanguage
	if fallback == "" {
		fallback = r.defaultLanguage
	}
	if id, ok := s.Voices[fallback]; ok {
		return id, nil
	}
	return "", fault.NotFound(op, "speaker %q has no voice for %q and no voice for default language %q", s.Name, language, fallback)
}

// HasSpeaker reports whether speaker resolves to a registered speaker.
func (r *Registry) HasSpeaker(speaker string) bool {
	_, ok := r.lookupSpeaker(speaker)
	return ok
}

func (r *Registry) lookupSpeaker(name string) (Speaker, bool) {
	if s, ok := r.speakers[name]; ok {
		return s, true
	}
	canonical, ok := r.folded[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Speaker{}, false
	}
	return r.speakers[canonical], true
}

// Languages returns the supported languages in configuration order.
func (r *Registry) Languages() []Language {
	out := make([]Language, len(r.languages))
	copy(out, r.languages)
	return out
}

// LanguageInfo is the display metadata exposed on the supported-languages
// surface.
type LanguageInfo struct {
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// SupportedLanguages returns a fresh code → {name, flag} map.
func (r *Registry) SupportedLanguages() map[string]LanguageInfo {
	out := make(map[string]LanguageInfo, len(r.languages))
	for _, l := range r.languages {
		out[l.Code] = LanguageInfo{Name: l.Name, Flag: l.Flag}
	}
	return out
}

// Speakers returns the registered speaker names, sorted.
func (r *Registry) Speakers() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// DefaultLanguage returns the process-wide default language code.
func (r *Registry) DefaultLanguage() string { return r.defaultLanguage }

// DefaultSpeaker returns the speaker used for single-utterance synthesis
// when the caller does not name a voice.
func (r *Registry) DefaultSpeaker() string { return r.defaultSpeaker }
