package domain

import "context"

const (
	FeatureTTS = "tts"
	FeatureSFX = "sfx"
)

// FeatureSettings controla una función del bot: si está activa, su volumen
// y qué roles pueden usarla. Se relee del almacén en cada decisión para que
// los cambios desde el panel apliquen al siguiente mensaje sin reiniciar.
type FeatureSettings struct {
	Enabled     bool
	Volume      float64
	Permissions RolePermissions
}

func DefaultFeatureSettings() FeatureSettings {
	return FeatureSettings{
		Enabled: true,
		Volume:  0.5,
		Permissions: RolePermissions{
			Subs: true,
			VIPs: true,
			Mods: true,
		},
	}
}

type SettingsRepository interface {
	FeatureSettings(ctx context.Context, feature string) (FeatureSettings, error)
	SaveFeatureSettings(ctx context.Context, feature string, settings FeatureSettings) error

	TTSVoice(ctx context.Context) (string, error)
	SetTTSVoice(ctx context.Context, code string) error

	// LanguageOverrides devuelve los flags de idioma guardados; los códigos
	// sin fila conservan el valor por defecto del catálogo (activo).
	LanguageOverrides(ctx context.Context) (map[string]bool, error)
	SetLanguageEnabled(ctx context.Context, code string, enabled bool) error
}
