package tts

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"yamBot/internal/domain"
)

// Language es una entrada del catálogo de idiomas del endpoint de Google
// Translate. El código sirve también como trigger de chat (!es, !en, !ja...).
type Language struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// languageNames mapea código canónico a nombre, la misma lista que acepta
// translate_tts como parámetro tl.
var languageNames = map[string]string{
	"af":    "Afrikaans",
	"sq":    "Albanian",
	"am":    "Amharic",
	"ar":    "Arabic",
	"az":    "Azerbaijani",
	"be":    "Belarusian",
	"bg":    "Bulgarian",
	"bn":    "Bengali",
	"bs":    "Bosnian",
	"ca":    "Catalan",
	"ceb":   "Cebuano",
	"ny":    "Chichewa",
	"zh-CN": "Chinese (Simplified)",
	"zh-TW": "Chinese (Traditional)",
	"co":    "Corsican",
	"hr":    "Croatian",
	"cs":    "Czech",
	"da":    "Danish",
	"nl":    "Dutch",
	"en":    "English",
	"eo":    "Esperanto",
	"et":    "Estonian",
	"tl":    "Filipino",
	"fi":    "Finnish",
	"fr":    "French",
	"fy":    "Frisian",
	"gl":    "Galician",
	"ka":    "Georgian",
	"de":    "German",
	"el":    "Greek",
	"gu":    "Gujarati",
	"ht":    "Haitian Creole",
	"ha":    "Hausa",
	"haw":   "Hawaiian",
	"iw":    "Hebrew",
	"hi":    "Hindi",
	"hmn":   "Hmong",
	"hu":    "Hungarian",
	"is":    "Icelandic",
	"ig":    "Igbo",
	"id":    "Indonesian",
	"ga":    "Irish",
	"it":    "Italian",
	"ja":    "Japanese",
	"jw":    "Javanese",
	"kn":    "Kannada",
	"kk":    "Kazakh",
	"km":    "Khmer",
	"rw":    "Kinyarwanda",
	"ko":    "Korean",
	"ku":    "Kurdish (Kurmanji)",
	"ky":    "Kyrgyz",
	"lo":    "Lao",
	"la":    "Latin",
	"lv":    "Latvian",
	"lt":    "Lithuanian",
	"lb":    "Luxembourgish",
	"mk":    "Macedonian",
	"mg":    "Malagasy",
	"ms":    "Malay",
	"ml":    "Malayalam",
	"mt":    "Maltese",
	"mi":    "Maori",
	"mr":    "Marathi",
	"mn":    "Mongolian",
	"my":    "Myanmar (Burmese)",
	"ne":    "Nepali",
	"no":    "Norwegian",
	"or":    "Odia",
	"ps":    "Pashto",
	"fa":    "Persian",
	"pl":    "Polish",
	"pt":    "Portuguese",
	"pa":    "Punjabi",
	"qu":    "Quechua",
	"ro":    "Romanian",
	"ru":    "Russian",
	"sm":    "Samoan",
	"gd":    "Scots Gaelic",
	"sr":    "Serbian",
	"st":    "Sesotho",
	"sn":    "Shona",
	"sd":    "Sindhi",
	"si":    "Sinhala",
	"sk":    "Slovak",
	"sl":    "Slovenian",
	"so":    "Somali",
	"es":    "Spanish",
	"su":    "Sundanese",
	"sw":    "Swahili",
	"sv":    "Swedish",
	"tg":    "Tajik",
	"ta":    "Tamil",
	"te":    "Telugu",
	"th":    "Thai",
	"tr":    "Turkish",
	"uk":    "Ukrainian",
	"ur":    "Urdu",
	"ug":    "Uyghur",
	"uz":    "Uzbek",
	"vi":    "Vietnamese",
	"cy":    "Welsh",
	"xh":    "Xhosa",
	"yi":    "Yiddish",
	"yo":    "Yoruba",
	"zu":    "Zulu",
}

var languageByLower = func() map[string]string {
	m := make(map[string]string, len(languageNames))
	for code := range languageNames {
		m[strings.ToLower(code)] = code
	}
	return m
}()

// Catalog resuelve triggers de idioma y mantiene qué idiomas están activos.
// Todos arrancan activos; los flags guardados en el repositorio pisan ese
// valor por defecto.
type Catalog struct {
	repo domain.SettingsRepository

	mu        sync.RWMutex
	overrides map[string]bool
}

func NewCatalog(ctx context.Context, repo domain.SettingsRepository) (*Catalog, error) {
	c := &Catalog{
		repo:      repo,
		overrides: make(map[string]bool),
	}
	if repo == nil {
		return c, nil
	}

	stored, err := repo.LanguageOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("tts: idiomas: %w", err)
	}
	for code, enabled := range stored {
		canon, ok := canonicalLanguage(code)
		if !ok {
			continue
		}
		c.overrides[canon] = enabled
	}
	return c, nil
}

// Has dice si el código es un idioma del catálogo, esté activo o no.
func (c *Catalog) Has(code string) bool {
	_, ok := canonicalLanguage(code)
	return ok
}

func (c *Catalog) IsEnabled(code string) bool {
	if c == nil {
		return false
	}
	canon, ok := canonicalLanguage(code)
	if !ok {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if enabled, seen := c.overrides[canon]; seen {
		return enabled
	}
	return true
}

// Canonical normaliza el código al formato del endpoint ("zh-cn" -> "zh-CN").
func (c *Catalog) Canonical(code string) (string, bool) {
	return canonicalLanguage(code)
}

// SetEnabled activa o desactiva un idioma. Devuelve false si el código no
// está en el catálogo.
func (c *Catalog) SetEnabled(ctx context.Context, code string, enabled bool) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("tts: catálogo nil")
	}
	canon, ok := canonicalLanguage(code)
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repo != nil {
		if err := c.repo.SetLanguageEnabled(ctx, canon, enabled); err != nil {
			return false, fmt.Errorf("tts: idioma %s: %w", canon, err)
		}
	}
	c.overrides[canon] = enabled
	return true, nil
}

// All devuelve el catálogo completo ordenado por nombre, con el flag de cada
// idioma ya resuelto.
func (c *Catalog) All() []Language {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Language, 0, len(languageNames))
	for code, name := range languageNames {
		enabled := true
		if v, seen := c.overrides[code]; seen {
			enabled = v
		}
		out = append(out, Language{Code: code, Name: name, Enabled: enabled})
	}
	slices.SortFunc(out, func(a, b Language) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func canonicalLanguage(code string) (string, bool) {
	canon, ok := languageByLower[strings.ToLower(strings.TrimSpace(code))]
	return canon, ok
}
