package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/orderflow-api/internal/domain"
)

// Política por defecto: 3 intentos, espera fija de 1 s, 5 s por intento.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second

	maxBodyBytes = 1 << 20
)

// Config configuración de un cliente de servicio remoto.
type Config struct {
	BaseURL     string
	Timeout     time.Duration // por intento
	MaxAttempts int
	Backoff     time.Duration // espera fija entre intentos
	AuthToken   string        // opcional, se envía como Bearer
}

// Request llamada a un endpoint del servicio.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Result respuesta final (2xx o 4xx terminal).
type Result struct {
	StatusCode int
	Body       []byte
}

// OK true para 2xx.
func (r *Result) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Decode deserializa el cuerpo JSON.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("respuesta inválida (%d): %w", r.StatusCode, err)
	}
	return nil
}

// Client envoltorio de reintentos y timeout sobre net/http compartido por los clientes tipados.
// Reintenta errores de transporte, 408, 429 y 5xx; los demás 4xx son terminales y se devuelven como Result.
// Agotados los intentos falla con domain.ErrUnreachable.
type Client struct {
	name       string
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient construye el cliente; los valores cero de cfg toman los valores por defecto.
func NewClient(name string, cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		name:       name,
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        log.With().Str("component", "remote_client").Str("service", name).Logger(),
	}
}

// Call ejecuta la petición con la política de reintentos. La cancelación del llamador corta los reintentos.
func (c *Client) Call(ctx context.Context, req Request) (*Result, error) {
	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("serializar petición a %s: %w", c.name, err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %s %s %s: %w", domain.ErrUnreachable, c.name, req.Method, req.Path, err)
			}
		}
		res, err := c.do(ctx, req, payload)
		if err == nil && !retryable(res.StatusCode) {
			return res, nil
		}
		if err == nil {
			err = fmt.Errorf("estado %d", res.StatusCode)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s %s %s: %w", domain.ErrUnreachable, c.name, req.Method, req.Path, ctxErr)
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", c.cfg.MaxAttempts).
			Str("method", req.Method).Str("path", req.Path).Msg("llamada remota fallida")
	}
	return nil, fmt.Errorf("%w: %s %s %s tras %d intentos: %v",
		domain.ErrUnreachable, c.name, req.Method, req.Path, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, req Request, payload []byte) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := c.cfg.BaseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("leer respuesta: %w", err)
	}
	return &Result{StatusCode: resp.StatusCode, Body: data}, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.cfg.Backoff == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.cfg.Backoff)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func retryable(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

// unexpected error para un estado terminal que el cliente tipado no sabe interpretar.
func unexpected(service string, res *Result) error {
	msg := strings.TrimSpace(string(res.Body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Errorf("%s: estado inesperado %d: %s", service, res.StatusCode, msg)
}
