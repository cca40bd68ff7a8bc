package domain

// RolePermissions indica qué roles de la audiencia pueden usar algo
// (un comando, el TTS, los sonidos). El broadcaster siempre puede,
// independientemente de los flags.
type RolePermissions struct {
	Subs bool
	VIPs bool
	Mods bool
}

// Allows aplica la regla de acceso común a comandos, TTS y sonidos.
func (p RolePermissions) Allows(msg Message) bool {
	if msg.IsBroadcaster {
		return true
	}
	if p.Subs && msg.IsSubscriber {
		return true
	}
	if p.VIPs && msg.IsVIP {
		return true
	}
	if p.Mods && msg.IsModerator {
		return true
	}
	return false
}
