package synthesis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hegedustibor/htgo-tts/voices"
)

const defaultEndpoint = "https://translate.google.com/translate_tts"

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client pide audio MP3 al endpoint de traducción de Google, una petición
// por fragmento. El texto ya viene partido a un tamaño que el endpoint
// acepta sin truncar.
type Client struct {
	httpCli  *http.Client
	endpoint string
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		httpCli:  &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
	}
}

func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("synthesis: texto vacío")
	}
	if strings.TrimSpace(lang) == "" {
		lang = voices.Spanish
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", text)
	params.Set("tl", lang)
	params.Set("total", "1")
	params.Set("idx", "0")
	params.Set("textlen", fmt.Sprintf("%d", utf8.RuneCountInString(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis: google tts status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("synthesis: leyendo respuesta: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesis: respuesta vacía")
	}

	return audio, nil
}
