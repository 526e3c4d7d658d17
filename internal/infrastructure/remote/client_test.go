package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/infrastructure/remote"
)

func newClient(url string, attempts int, timeout time.Duration) *remote.Client {
	return remote.NewClient("test", remote.Config{
		BaseURL:     url,
		Timeout:     timeout,
		MaxAttempts: attempts,
		Backoff:     time.Millisecond,
		AuthToken:   "token-servicio",
	}, zerolog.Nop())
}

func TestCall_ReintentaErroresDelServidor(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-servicio", r.Header.Get("Authorization"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	res, err := newClient(srv.URL, 3, time.Second).Call(context.Background(), remote.Request{Method: http.MethodGet, Path: "/x"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_4xxEsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	res, err := newClient(srv.URL, 3, time.Second).Call(context.Background(), remote.Request{Method: http.MethodPost, Path: "/x", Body: map[string]int{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_AgotaIntentosEsUnreachable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 3, time.Second).Call(context.Background(), remote.Request{Method: http.MethodGet, Path: "/x"})
	assert.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_TimeoutPorIntento(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newClient(srv.URL, 2, 20*time.Millisecond).Call(context.Background(), remote.Request{Method: http.MethodGet, Path: "/lento"})
	assert.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestCall_ServidorCaido(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url, 2, 100*time.Millisecond).Call(context.Background(), remote.Request{Method: http.MethodGet, Path: "/x"})
	assert.ErrorIs(t, err, domain.ErrUnreachable)
}

func TestCall_CancelacionCortaReintentos(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 5, time.Second).Call(ctx, remote.Request{Method: http.MethodGet, Path: "/x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

// ──────────────────────────────────────────────────────────────────────────────
// Clientes tipados
// ──────────────────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestUserClient_VerifyUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/U1/verify":
			writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
		case "/users/U2/verify":
			writeJSON(w, http.StatusOK, map[string]bool{"valid": false})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	users := remote.NewUserClient(newClient(srv.URL, 1, time.Second))

	ok, err := users.VerifyUser(context.Background(), "U1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.VerifyUser(context.Background(), "U2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = users.VerifyUser(context.Background(), "U404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserClient_CaidaNoEsValido(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ok, err := remote.NewUserClient(newClient(srv.URL, 2, time.Second)).VerifyUser(context.Background(), "U1")
	assert.ErrorIs(t, err, domain.ErrUnreachable)
	assert.False(t, ok)
}

func TestProductClient_GetProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products/P1" {
			_, _ = w.Write([]byte(`{"id":"P1","name":"Café","price":"19.99"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	products := remote.NewProductClient(newClient(srv.URL, 1, time.Second))

	p, err := products.GetProduct(context.Background(), "P1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "19.99", p.Price.StringFixed(2))

	p, err = products.GetProduct(context.Background(), "P9")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductClient_IDRechazadoEsInexistente(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/no-es-objectid":
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "id inválido"})
		case "/products/vacio":
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "id requerido"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	products := remote.NewProductClient(newClient(srv.URL, 2, time.Second))
	ctx := context.Background()

	p, err := products.GetProduct(ctx, "no-es-objectid")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = products.GetProduct(ctx, "vacio")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = products.GetProduct(ctx, "P1")
	assert.ErrorIs(t, err, domain.ErrUnreachable)
}

func TestInventoryClient_MapeaCodigoDeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["product_id"] {
		case "P1":
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "INVALID_BODY", "message": "cuerpo inválido"})
		case "P2":
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "VALIDATION", "message": "cantidad inválida"})
		case "P3":
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "INSUFFICIENT_STOCK", "message": "sin stock"})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()
	inv := remote.NewInventoryClient(newClient(srv.URL, 1, time.Second))
	ctx := context.Background()

	err := inv.Reserve(ctx, "P1", 1, "A1:0")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
	assert.ErrorIs(t, inv.Reserve(ctx, "P2", 1, "A1:1"), domain.ErrInvalidInput)
	assert.ErrorIs(t, inv.Reserve(ctx, "P3", 1, "A1:2"), domain.ErrInsufficientStock)
	assert.ErrorIs(t, inv.Reserve(ctx, "P4", 1, "A1:3"), domain.ErrInvalidInput)
}

func TestInventoryClient_MapeaEstados(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inventory/check":
			assert.Equal(t, "3", r.URL.Query().Get("quantity"))
			writeJSON(w, http.StatusOK, map[string]any{"available": r.URL.Query().Get("product_id") == "P1"})
		case "/inventory/reserve":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch body["product_id"] {
			case "P1":
				assert.Equal(t, "A1:0", body["order_id"])
				writeJSON(w, http.StatusOK, map[string]any{"reserved": true})
			case "P2":
				writeJSON(w, http.StatusBadRequest, map[string]string{"code": "INSUFFICIENT_STOCK"})
			default:
				writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND"})
			}
		case "/inventory/release":
			writeJSON(w, http.StatusConflict, map[string]string{"code": "INVALID_STATE"})
		}
	}))
	defer srv.Close()
	inv := remote.NewInventoryClient(newClient(srv.URL, 1, time.Second))
	ctx := context.Background()

	ok, err := inv.Check(ctx, "P1", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = inv.Check(ctx, "P2", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, inv.Reserve(ctx, "P1", 1, "A1:0"))
	assert.ErrorIs(t, inv.Reserve(ctx, "P2", 1, "A1:1"), domain.ErrInsufficientStock)
	assert.ErrorIs(t, inv.Reserve(ctx, "P9", 1, "A1:2"), domain.ErrNotFound)
	assert.ErrorIs(t, inv.Release(ctx, "P1", 1, "A1:0"), domain.ErrInvalidState)
}
