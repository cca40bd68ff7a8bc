package sfx

// Manager junta catálogo y reproductor detrás de la interfaz que consume el
// manejador de mensajes.
type Manager struct {
	catalog *Catalog
	player  *Player
}

func NewManager(catalog *Catalog, player *Player) *Manager {
	return &Manager{catalog: catalog, player: player}
}

func (m *Manager) Lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	return m.catalog.Lookup(name)
}

func (m *Manager) Play(name, path, requestedBy string, volume float64) bool {
	if m == nil || m.player == nil {
		return false
	}
	return m.player.Enqueue(PlayRequest{
		Name:        name,
		Path:        path,
		Volume:      volume,
		RequestedBy: requestedBy,
	})
}
