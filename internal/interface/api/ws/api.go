package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"yamBot/internal/app/events"
	"yamBot/internal/domain"
	ttsusecase "yamBot/internal/usecase/tts"
)

type Config struct {
	Addr string
	Bus  *events.Bus

	Commands  CommandManager
	TTS       TTSManager
	Languages LanguageManager
	Queue     QueueManager
	Sounds    SoundLister
	Settings  domain.SettingsRepository
	Status    func() domain.BotStatus
}

func (c *Config) addr() string {
	if c == nil || c.Addr == "" {
		return ":8080"
	}
	return c.Addr
}

type CommandManager interface {
	Register(ctx context.Context, def *domain.CommandDefinition) (*domain.CommandDefinition, bool, error)
	Unregister(ctx context.Context, trigger string) (bool, error)
	Toggle(ctx context.Context, trigger string, enabled bool) (bool, error)
	List() []*domain.CommandDefinition
}

type TTSManager interface {
	ListVoices() []ttsusecase.VoiceOption
	CurrentVoice(ctx context.Context) ttsusecase.VoiceOption
	SetVoice(ctx context.Context, code string) (ttsusecase.VoiceOption, error)
	Process(ctx context.Context, req domain.TTSRequest) error
}

type LanguageManager interface {
	All() []ttsusecase.Language
	SetEnabled(ctx context.Context, code string, enabled bool) (bool, error)
}

type QueueManager interface {
	SnapshotParts() (*domain.TTSQueueItem, []*domain.TTSQueueItem)
	CurrentlyPlaying() *domain.TTSQueueItem
	RequestSkip()
	Remove(id string) bool
	Clear() int
	DropUser(username string) int
	Ignore(username string)
	Unignore(username string) bool
	IgnoredUsers() []string
}

type SoundLister interface {
	List() []string
}

type apiHandlers struct {
	bus       *events.Bus
	commands  CommandManager
	tts       TTSManager
	languages LanguageManager
	queue     QueueManager
	sounds    SoundLister
	settings  domain.SettingsRepository
	status    func() domain.BotStatus

	// contexto del runtime para trabajos que sobreviven a la request
	baseCtx context.Context
}

func newAPIHandlers(cfg Config) *apiHandlers {
	return &apiHandlers{
		bus:       cfg.Bus,
		commands:  cfg.Commands,
		tts:       cfg.TTS,
		languages: cfg.Languages,
		queue:     cfg.Queue,
		sounds:    cfg.Sounds,
		settings:  cfg.Settings,
		status:    cfg.Status,
	}
}

func (a *apiHandlers) setBaseContext(ctx context.Context) {
	if a == nil {
		return
	}
	a.baseCtx = ctx
}

func (a *apiHandlers) background() context.Context {
	if a == nil || a.baseCtx == nil {
		return context.Background()
	}
	return a.baseCtx
}

func (a *apiHandlers) register(mux *http.ServeMux) {
	if a == nil || mux == nil {
		return
	}

	mux.HandleFunc("/api/status", a.withCORS(a.handleStatus))

	if a.tts != nil {
		mux.HandleFunc("/api/tts/settings", a.withCORS(a.handleTTSSettings))
		mux.HandleFunc("/api/tts/voices", a.withCORS(a.handleTTSVoices))
		mux.HandleFunc("/api/tts/speak", a.withCORS(a.handleTTSSpeak))
	}
	if a.languages != nil {
		mux.HandleFunc("/api/tts/languages", a.withCORS(a.handleLanguages))
		mux.HandleFunc("/api/tts/languages/toggle", a.withCORS(a.handleLanguageToggle))
	}
	if a.queue != nil {
		mux.HandleFunc("/api/queue", a.withCORS(a.handleQueue))
		mux.HandleFunc("/api/queue/skip", a.withCORS(a.handleQueueSkip))
		mux.HandleFunc("/api/queue/remove", a.withCORS(a.handleQueueRemove))
		mux.HandleFunc("/api/queue/clear", a.withCORS(a.handleQueueClear))
		mux.HandleFunc("/api/ignore", a.withCORS(a.handleIgnore))
	}
	if a.commands != nil {
		mux.HandleFunc("/api/commands", a.withCORS(a.handleCommands))
		mux.HandleFunc("/api/commands/delete", a.withCORS(a.handleCommandDelete))
		mux.HandleFunc("/api/commands/toggle", a.withCORS(a.handleCommandToggle))
	}
	if a.settings != nil {
		mux.HandleFunc("/api/sfx/settings", a.withCORS(a.handleSFXSettings))
	}
	if a.sounds != nil {
		mux.HandleFunc("/api/sfx/sounds", a.withCORS(a.handleSounds))
	}
}

func (a *apiHandlers) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
}

type rolePermissionsDTO struct {
	Subs bool `json:"subs"`
	VIPs bool `json:"vips"`
	Mods bool `json:"mods"`
}

func toPermissionsDTO(p domain.RolePermissions) rolePermissionsDTO {
	return rolePermissionsDTO{Subs: p.Subs, VIPs: p.VIPs, Mods: p.Mods}
}

func (p rolePermissionsDTO) toDomain() domain.RolePermissions {
	return domain.RolePermissions{Subs: p.Subs, VIPs: p.VIPs, Mods: p.Mods}
}

type featureSettingsDTO struct {
	Enabled     bool               `json:"enabled"`
	Volume      float64            `json:"volume"`
	Permissions rolePermissionsDTO `json:"permissions"`
}

type featureUpdateRequest struct {
	Enabled     *bool               `json:"enabled"`
	Volume      *float64            `json:"volume"`
	Permissions *rolePermissionsDTO `json:"permissions"`
	Voice       string              `json:"voice"`
}

type ttsSettingsResponse struct {
	featureSettingsDTO
	Voice      string `json:"voice"`
	VoiceLabel string `json:"voice_label,omitempty"`
}

func (a *apiHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if a.status == nil {
		writeJSON(w, http.StatusOK, domain.BotStatus{UpdatedAt: time.Now().UTC()})
		return
	}
	writeJSON(w, http.StatusOK, a.status())
}

func (a *apiHandlers) handleTTSSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings := a.featureSettings(r.Context(), domain.FeatureTTS)
		current := a.tts.CurrentVoice(r.Context())
		writeJSON(w, http.StatusOK, ttsSettingsResponse{
			featureSettingsDTO: featureSettingsDTO{
				Enabled:     settings.Enabled,
				Volume:      settings.Volume,
				Permissions: toPermissionsDTO(settings.Permissions),
			},
			Voice:      current.Code,
			VoiceLabel: current.Label,
		})
	case http.MethodPost:
		defer r.Body.Close()
		var req featureUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}

		if req.Voice != "" {
			if _, err := a.tts.SetVoice(r.Context(), req.Voice); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		settings, ok := a.applyFeatureUpdate(r.Context(), w, domain.FeatureTTS, req)
		if !ok {
			return
		}

		current := a.tts.CurrentVoice(r.Context())
		writeJSON(w, http.StatusOK, ttsSettingsResponse{
			featureSettingsDTO: featureSettingsDTO{
				Enabled:     settings.Enabled,
				Volume:      settings.Volume,
				Permissions: toPermissionsDTO(settings.Permissions),
			},
			Voice:      current.Code,
			VoiceLabel: current.Label,
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *apiHandlers) handleSFXSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings := a.featureSettings(r.Context(), domain.FeatureSFX)
		writeJSON(w, http.StatusOK, featureSettingsDTO{
			Enabled:     settings.Enabled,
			Volume:      settings.Volume,
			Permissions: toPermissionsDTO(settings.Permissions),
		})
	case http.MethodPost:
		defer r.Body.Close()
		var req featureUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}

		settings, ok := a.applyFeatureUpdate(r.Context(), w, domain.FeatureSFX, req)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, featureSettingsDTO{
			Enabled:     settings.Enabled,
			Volume:      settings.Volume,
			Permissions: toPermissionsDTO(settings.Permissions),
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// applyFeatureUpdate mezcla los campos presentes de la request sobre los
// ajustes guardados. Escribe la respuesta de error por su cuenta.
func (a *apiHandlers) applyFeatureUpdate(ctx context.Context, w http.ResponseWriter, feature string, req featureUpdateRequest) (domain.FeatureSettings, bool) {
	if a.settings == nil {
		writeError(w, http.StatusInternalServerError, "settings store not configured")
		return domain.FeatureSettings{}, false
	}

	settings := a.featureSettings(ctx, feature)
	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.Volume != nil {
		if *req.Volume < 0 || *req.Volume > 1 {
			writeError(w, http.StatusBadRequest, "volume out of range")
			return domain.FeatureSettings{}, false
		}
		settings.Volume = *req.Volume
	}
	if req.Permissions != nil {
		settings.Permissions = req.Permissions.toDomain()
	}

	if err := a.settings.SaveFeatureSettings(ctx, feature, settings); err != nil {
		log.Printf("api: guardando ajustes de %s: %v", feature, err)
		writeError(w, http.StatusInternalServerError, "could not save settings")
		return domain.FeatureSettings{}, false
	}
	return settings, true
}

func (a *apiHandlers) featureSettings(ctx context.Context, feature string) domain.FeatureSettings {
	if a.settings == nil {
		return domain.DefaultFeatureSettings()
	}
	settings, err := a.settings.FeatureSettings(ctx, feature)
	if err != nil {
		log.Printf("api: ajustes de %s: %v", feature, err)
		return domain.DefaultFeatureSettings()
	}
	return settings
}

type ttsVoiceDTO struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type ttsVoicesResponse struct {
	Current string        `json:"current"`
	Voices  []ttsVoiceDTO `json:"voices"`
}

func (a *apiHandlers) handleTTSVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	options := a.tts.ListVoices()
	voices := make([]ttsVoiceDTO, 0, len(options))
	for _, option := range options {
		voices = append(voices, ttsVoiceDTO{Code: option.Code, Label: option.Label})
	}

	writeJSON(w, http.StatusOK, ttsVoicesResponse{
		Current: a.tts.CurrentVoice(r.Context()).Code,
		Voices:  voices,
	})
}

type speakRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Username string `json:"username"`
}

// handleTTSSpeak sintetiza un texto mandado desde el panel. La síntesis
// corre aparte con el contexto del runtime para no atar la request.
func (a *apiHandlers) handleTTSSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "missing text")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = "panel"
	}

	ttsReq := domain.TTSRequest{
		Username: username,
		Language: strings.TrimSpace(req.Language),
		Text:     text,
	}
	go func() {
		if err := a.tts.Process(a.background(), ttsReq); err != nil {
			log.Printf("api: tts desde el panel: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

type languagesResponse struct {
	Languages []ttsusecase.Language `json:"languages"`
}

func (a *apiHandlers) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, languagesResponse{Languages: a.languages.All()})
}

type languageToggleRequest struct {
	Code    string `json:"code"`
	Enabled bool   `json:"enabled"`
}

func (a *apiHandlers) handleLanguageToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req languageToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	found, err := a.languages.SetEnabled(r.Context(), req.Code, req.Enabled)
	if err != nil {
		log.Printf("api: idioma %s: %v", req.Code, err)
		writeError(w, http.StatusInternalServerError, "could not save language")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown language")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *apiHandlers) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	current, pending := a.queue.SnapshotParts()
	writeJSON(w, http.StatusOK, events.NewQueueSnapshotDTO(current, pending))
}

func (a *apiHandlers) handleQueueSkip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// sin nada sonando no hay que saltar; así el flag no se come al
	// siguiente item que entre
	if a.queue.CurrentlyPlaying() == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"skipped": false})
		return
	}

	a.queue.RequestSkip()
	writeJSON(w, http.StatusOK, map[string]bool{"skipped": true})
}

type queueRemoveRequest struct {
	ID string `json:"id"`
}

func (a *apiHandlers) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req queueRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	removed := a.queue.Remove(req.ID)
	a.publishQueue()
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (a *apiHandlers) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	dropped := a.queue.Clear()
	a.publishQueue()
	writeJSON(w, http.StatusOK, map[string]int{"dropped": dropped})
}

type ignoreRequest struct {
	Username string `json:"username"`
	Ignored  bool   `json:"ignored"`
}

type ignoreResponse struct {
	Users []string `json:"users"`
}

func (a *apiHandlers) handleIgnore(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, ignoreResponse{Users: a.queue.IgnoredUsers()})
	case http.MethodPost:
		defer r.Body.Close()
		var req ignoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if strings.TrimSpace(req.Username) == "" {
			writeError(w, http.StatusBadRequest, "missing username")
			return
		}

		if req.Ignored {
			a.queue.Ignore(req.Username)
			// sus items pendientes salen ya; el scheduler descarta el resto
			if a.queue.DropUser(req.Username) > 0 {
				a.publishQueue()
			}
		} else {
			a.queue.Unignore(req.Username)
		}
		writeJSON(w, http.StatusOK, ignoreResponse{Users: a.queue.IgnoredUsers()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type commandDTO struct {
	Trigger         string             `json:"trigger"`
	Kind            string             `json:"kind"`
	Text            string             `json:"text"`
	Permissions     rolePermissionsDTO `json:"permissions"`
	CooldownSeconds int                `json:"cooldown_seconds"`
	Enabled         bool               `json:"enabled"`
	UpdatedAt       time.Time          `json:"updated_at,omitempty"`
}

func toCommandDTO(def *domain.CommandDefinition) commandDTO {
	return commandDTO{
		Trigger:         def.Trigger,
		Kind:            string(def.Action.Kind),
		Text:            def.Action.Text,
		Permissions:     toPermissionsDTO(def.Permissions),
		CooldownSeconds: int(def.Cooldown / time.Second),
		Enabled:         def.Enabled,
		UpdatedAt:       def.UpdatedAt,
	}
}

type commandsResponse struct {
	Commands []commandDTO `json:"commands"`
}

func (a *apiHandlers) handleCommands(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list := a.commands.List()
		commands := make([]commandDTO, 0, len(list))
		for _, def := range list {
			commands = append(commands, toCommandDTO(def))
		}
		writeJSON(w, http.StatusOK, commandsResponse{Commands: commands})
	case http.MethodPost:
		defer r.Body.Close()
		var req commandDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}

		kind := domain.ActionSend
		if strings.EqualFold(strings.TrimSpace(req.Kind), string(domain.ActionReply)) {
			kind = domain.ActionReply
		}

		def := &domain.CommandDefinition{
			Trigger:     req.Trigger,
			Action:      domain.CommandAction{Kind: kind, Text: req.Text},
			Permissions: req.Permissions.toDomain(),
			Cooldown:    time.Duration(req.CooldownSeconds) * time.Second,
			Enabled:     req.Enabled,
		}

		saved, created, err := a.commands.Register(r.Context(), def)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, toCommandDTO(saved))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type commandDeleteRequest struct {
	Trigger string `json:"trigger"`
}

func (a *apiHandlers) handleCommandDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req commandDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	found, err := a.commands.Unregister(r.Context(), req.Trigger)
	if err != nil {
		log.Printf("api: borrando comando %s: %v", req.Trigger, err)
		writeError(w, http.StatusInternalServerError, "could not delete command")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown command")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type commandToggleRequest struct {
	Trigger string `json:"trigger"`
	Enabled bool   `json:"enabled"`
}

func (a *apiHandlers) handleCommandToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req commandToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	found, err := a.commands.Toggle(r.Context(), req.Trigger, req.Enabled)
	if err != nil {
		log.Printf("api: comando %s: %v", req.Trigger, err)
		writeError(w, http.StatusInternalServerError, "could not toggle command")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown command")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type soundsResponse struct {
	Sounds []string `json:"sounds"`
}

func (a *apiHandlers) handleSounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, soundsResponse{Sounds: a.sounds.List()})
}

func (a *apiHandlers) publishQueue() {
	if a.bus == nil || a.queue == nil {
		return
	}
	current, pending := a.queue.SnapshotParts()
	a.bus.Publish(events.TopicQueue, events.NewQueueSnapshotDTO(current, pending))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
