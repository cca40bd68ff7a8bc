package runtime

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"yamBot/internal/app/events"
	"yamBot/internal/app/sfx"
	"yamBot/internal/app/tts/queue"
	"yamBot/internal/app/tts/scheduler"
	"yamBot/internal/domain"
	"yamBot/internal/infrastructure/audio"
	"yamBot/internal/infrastructure/config"
	sqlitestorage "yamBot/internal/infrastructure/persistence/sqlite"
	twitchinfra "yamBot/internal/infrastructure/platform/twitch"
	"yamBot/internal/infrastructure/synthesis"
	twitchadapter "yamBot/internal/interface/adapters/twitch"
	"yamBot/internal/interface/api/ws"
	"yamBot/internal/interface/outs"
	"yamBot/internal/usecase/commands"
	"yamBot/internal/usecase/handle_message"
	ttsusecase "yamBot/internal/usecase/tts"
)

const statusInterval = 15 * time.Second

type Options struct{}

// Runtime levanta y cablea todas las piezas del bot: almacén, bus, comandos,
// TTS, sonidos, chat de Twitch y el servidor del panel.
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config

	store     *sqlitestorage.Store
	bus       *events.Bus
	registry  *commands.Registry
	ttsServ   *ttsusecase.Service
	languages *ttsusecase.Catalog
	playback  *queue.Queue
	scheduler *scheduler.Scheduler
	sfxCat    *sfx.Catalog
	sfxPlayer *sfx.Player
	wsServer  *ws.Server
	twitchAd  *twitchadapter.Adapter
	multiOut  *outs.MultiSender

	dispatcher func(context.Context, domain.Message) error

	channel       string
	broadcasterID string
	startedAt     time.Time

	wg      sync.WaitGroup
	started bool
}

// snapshotQueue envuelve la cola de reproducción para que cada item que
// entra por el servicio de TTS publique el estado nuevo hacia el panel.
type snapshotQueue struct {
	queue *queue.Queue
	bus   *events.Bus
}

func (q *snapshotQueue) Add(item *domain.TTSQueueItem) {
	q.queue.Add(item)
	if q.bus == nil {
		return
	}
	current, pending := q.queue.SnapshotParts()
	q.bus.Publish(events.TopicQueue, events.NewQueueSnapshotDTO(current, pending))
}

func Start(ctx context.Context, _ Options) (*Runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runtimeCtx, cancel := context.WithCancel(ctx)

	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := sqlitestorage.NewStore(cfg.DatabasePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	bus := events.NewBus()
	notifier := events.NewNotifier(bus)

	registry, err := commands.NewRegistry(runtimeCtx, store)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("commands: %w", err)
	}
	executor := commands.NewExecutor(registry)

	languages, err := ttsusecase.NewCatalog(runtimeCtx, store)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("idiomas: %w", err)
	}

	playback := queue.New()
	ttsService := ttsusecase.NewService(
		store,
		synthesis.NewClient(synthesis.Config{}),
		&snapshotQueue{queue: playback, bus: bus},
		notifier,
	)

	device := audio.NewDevice()
	sched := scheduler.New(scheduler.Config{
		Queue:    playback,
		Device:   device,
		Settings: store,
		Bus:      bus,
	})

	sfxCatalog := sfx.NewCatalog(cfg.SoundsDir)
	sfxPlayer := sfx.NewPlayer(device, bus, 0)
	sfxManager := sfx.NewManager(sfxCatalog, sfxPlayer)

	multiOut := outs.NewMultiSender()

	run := &Runtime{
		ctx:       runtimeCtx,
		cancel:    cancel,
		cfg:       cfg,
		store:     store,
		bus:       bus,
		registry:  registry,
		ttsServ:   ttsService,
		languages: languages,
		playback:  playback,
		scheduler: sched,
		sfxCat:    sfxCatalog,
		sfxPlayer: sfxPlayer,
		multiOut:  multiOut,
		channel:   ensureTwitchChannel(cfg.TwitchChannel),
		startedAt: time.Now().UTC(),
	}

	interactor := handle_message.NewInteractor(handle_message.Config{
		Executor:  executor,
		TTS:       ttsService,
		Languages: languages,
		Sounds:    sfxManager,
		Settings:  store,
		Out:       multiOut,
		Notifier:  notifier,
		Prefix:    cfg.CommandPrefix,
	})

	twitchAd := twitchadapter.NewAdapter(twitchadapter.Config{
		Username:   cfg.TwitchUsername,
		OAuthToken: formatTwitchOAuthToken(cfg.TwitchToken),
		Channels:   channelList(run.channel),
	})
	run.twitchAd = twitchAd
	multiOut.Register(domain.PlatformTwitch, twitchAd)

	wsServer := ws.NewServer(ws.Config{
		Addr:      cfg.ListenAddr,
		Bus:       bus,
		Commands:  registry,
		TTS:       ttsService,
		Languages: languages,
		Queue:     playback,
		Sounds:    sfxCatalog,
		Settings:  store,
		Status:    run.Status,
	})
	run.wsServer = wsServer
	multiOut.Register(domain.PlatformWeb, wsServer)

	if cfg.TwitchClientId != "" && cfg.TwitchApiToken != "" {
		run.resolveBroadcaster(runtimeCtx)
	}

	dispatch := func(ctx context.Context, msg domain.Message) error {
		if msg.ChannelID == "" && msg.Platform == domain.PlatformTwitch {
			msg.ChannelID = run.channel
		}
		if msg.Username == "" {
			msg.Username = "web-user"
		}

		bus.Publish(events.TopicChatMessage, events.NewChatMessageDTO(msg))
		return interactor.Handle(ctx, msg)
	}
	run.dispatcher = dispatch

	wsServer.SetHandler(dispatch)
	twitchAd.SetHandler(dispatch)

	run.wg.Add(1)
	go func() {
		defer run.wg.Done()
		log.Printf("Iniciando servidor WS en %s", cfg.ListenAddr)
		if err := wsServer.Start(runtimeCtx); err != nil && err != context.Canceled {
			log.Printf("ws server error: %v", err)
		}
	}()

	if cfg.TwitchUsername != "" && cfg.TwitchToken != "" && run.channel != "" {
		run.wg.Add(1)
		go func() {
			defer run.wg.Done()
			if err := twitchAd.Start(runtimeCtx); err != nil && err != context.Canceled {
				log.Printf("twitch adapter error: %v", err)
				notifier.Error("twitch", "Conexión con Twitch caída: "+err.Error())
			}
		}()
	} else {
		log.Println("twitch: sin credenciales, el bot queda solo con el panel web")
	}

	if err := sfxCatalog.Start(runtimeCtx); err != nil {
		log.Printf("Advertencia: sonidos no disponibles: %v", err)
	}
	sfxPlayer.Start(runtimeCtx)
	sched.Start(runtimeCtx)

	run.wg.Add(1)
	go func() {
		defer run.wg.Done()
		run.publishStatusLoop(runtimeCtx)
	}()

	run.started = true
	return run, nil
}

// resolveBroadcaster pregunta a Helix por el ID del dueño del canal. Es solo
// informativo para el panel; si falla, el bot sigue.
func (r *Runtime) resolveBroadcaster(ctx context.Context) {
	login := strings.TrimPrefix(r.channel, "#")
	if login == "" {
		login = r.cfg.TwitchUsername
	}
	if login == "" {
		return
	}

	identity, err := twitchinfra.NewIdentity(r.cfg.TwitchClientId, r.cfg.TwitchApiToken)
	if err != nil {
		log.Printf("no se pudo iniciar el cliente de Helix: %v", err)
		return
	}

	id, err := identity.UserID(ctx, login)
	if err != nil {
		log.Printf("no pude resolver el ID de Twitch de %s: %v", login, err)
		return
	}
	r.broadcasterID = id
}

func (r *Runtime) publishStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	r.bus.Publish(events.TopicBotStatus, r.Status())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.bus.Publish(events.TopicBotStatus, r.Status())
		}
	}
}

// Status compone el estado actual para el panel y /api/status.
func (r *Runtime) Status() domain.BotStatus {
	if r == nil {
		return domain.BotStatus{}
	}
	return domain.BotStatus{
		Connected:     r.twitchAd.Connected(),
		Channel:       strings.TrimPrefix(r.channel, "#"),
		BroadcasterID: r.broadcasterID,
		Speaking:      r.playback.CurrentlyPlaying() != nil,
		QueueLength:   r.playback.Len(),
		StartedAt:     r.startedAt,
		UpdatedAt:     time.Now().UTC(),
	}
}

func (r *Runtime) Stop() error {
	if r == nil || !r.started {
		return nil
	}
	r.cancel()
	r.scheduler.Close()
	r.sfxPlayer.Close()
	if err := r.sfxCat.Close(); err != nil {
		log.Printf("sfx: cerrando catálogo: %v", err)
	}
	r.wg.Wait()
	r.bus.Close()
	r.started = false
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) Bus() *events.Bus {
	if r == nil {
		return nil
	}
	return r.bus
}

func (r *Runtime) TTSService() *ttsusecase.Service {
	if r == nil {
		return nil
	}
	return r.ttsServ
}

func (r *Runtime) Registry() *commands.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Runtime) Queue() *queue.Queue {
	if r == nil {
		return nil
	}
	return r.playback
}

func (r *Runtime) Config() *config.Config {
	if r == nil {
		return nil
	}
	return r.cfg
}

// DispatchMessage inyecta un mensaje como si viniera del chat. Lo usa el
// panel y resulta útil en pruebas manuales.
func (r *Runtime) DispatchMessage(ctx context.Context, msg domain.Message) error {
	if r == nil || r.dispatcher == nil {
		return fmt.Errorf("runtime no iniciado")
	}
	return r.dispatcher(ctx, msg)
}

func formatTwitchOAuthToken(token string) string {
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, "oauth:") {
		return token
	}
	return "oauth:" + token
}

func ensureTwitchChannel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "#") {
		value = "#" + value
	}
	return strings.ToLower(value)
}

func channelList(channel string) []string {
	if channel == "" {
		return nil
	}
	return []string{channel}
}
