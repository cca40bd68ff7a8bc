package sfx

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Catalog indexa los archivos de sonido de un directorio por nombre: el
// nombre del archivo sin extensión, en minúsculas, es el trigger de chat.
// Un watcher reescanea cuando el directorio cambia, así dejar caer un mp3
// nuevo lo hace usable sin reiniciar el bot.
type Catalog struct {
	dir string

	mu     sync.RWMutex
	sounds map[string]string // nombre -> ruta

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{
		dir:    dir,
		sounds: make(map[string]string),
	}
}

// Scan recorre el directorio y reconstruye el índice completo.
func (c *Catalog) Scan() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("sfx: leyendo %s: %w", c.dir, err)
	}

	sounds := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := soundName(entry.Name())
		if !ok {
			continue
		}
		sounds[name] = filepath.Join(c.dir, entry.Name())
	}

	c.mu.Lock()
	c.sounds = sounds
	c.mu.Unlock()
	return nil
}

// Start crea el directorio si hace falta, hace el primer escaneo y deja el
// watcher reescaneando en segundo plano hasta que se cancele el contexto o
// se llame a Close.
func (c *Catalog) Start(ctx context.Context) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("sfx: creando %s: %w", c.dir, err)
	}
	if err := c.Scan(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("sfx: watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("sfx: vigilando %s: %w", c.dir, err)
	}
	c.watcher = watcher

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.watch(ctx)
	}()

	log.Printf("sfx: %d sonidos en %s", len(c.List()), c.dir)
	return nil
}

func (c *Catalog) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if _, relevant := soundName(filepath.Base(event.Name)); !relevant {
				continue
			}
			if err := c.Scan(); err != nil {
				log.Printf("sfx: reescaneo tras %s: %v", event.Op, err)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("sfx: watcher: %v", err)
		}
	}
}

// Lookup resuelve un nombre de sonido a su ruta.
func (c *Catalog) Lookup(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	path, ok := c.sounds[key]
	return path, ok
}

// List devuelve los nombres disponibles ordenados.
func (c *Catalog) List() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.sounds))
	for name := range c.sounds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Close() error {
	if c == nil || c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.wg.Wait()
	return err
}

// soundName valida la extensión y deriva el nombre con el que se invoca.
func soundName(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".mp3" && ext != ".wav" {
		return "", false
	}
	name := strings.ToLower(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if name == "" {
		return "", false
	}
	return name, true
}
