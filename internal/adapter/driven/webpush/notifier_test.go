package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

type memoryStore struct {
	mu      sync.Mutex
	subs    []model.PushSubscription
	deleted []int64
}

func (m *memoryStore) Subscribe(_ context.Context, userID int64, s string) (model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.PushSubscription{ID: int64(len(m.subs) + 1), UserID: userID, Subscription: s, SubscribedAt: time.Now()}
	m.subs = append(m.subs, sub)
	return sub, nil
}

func (m *memoryStore) ListByUser(_ context.Context, userID int64) ([]model.PushSubscription, error) {
	return nil, nil
}

func (m *memoryStore) ListAll(_ context.Context) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PushSubscription(nil), m.subs...), nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

// browserSubscription returns the JSON a browser would hand out for endpoint.
func browserSubscription(t *testing.T, endpoint string) string {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	out, err := json.Marshal(map[string]any{
		"endpoint": endpoint,
		"keys": map[string]string{
			"p256dh": base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			"auth":   base64.RawURLEncoding.EncodeToString(auth),
		},
	})
	require.NoError(t, err)
	return string(out)
}

func testKeys(t *testing.T) Keys {
	t.Helper()
	keys, err := LoadOrCreateKeys(filepath.Join(t.TempDir(), "vapid.yaml"))
	require.NoError(t, err)
	return keys
}

func TestLoadOrCreateKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vapid.yaml")

	first, err := LoadOrCreateKeys(path)
	require.NoError(t, err)
	assert.NotEmpty(t, first.PublicKey)
	assert.NotEmpty(t, first.PrivateKey)

	public, err := base64.RawURLEncoding.DecodeString(first.PublicKey)
	require.NoError(t, err)
	assert.Len(t, public, 65, "uncompressed P-256 point")

	second, err := LoadOrCreateKeys(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "keys are persisted")
}

func TestNotifySubmission(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []*http.Request
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /push/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		requests = append(requests, r)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /push/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("POST /push/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	store := &memoryStore{}
	ctx := context.Background()
	for _, path := range []string{"/push/ok", "/push/gone", "/push/broken"} {
		_, err := store.Subscribe(ctx, 1, browserSubscription(t, server.URL+path))
		require.NoError(t, err)
	}

	keys := testKeys(t)
	n := newNotifier(store, keys, "mailto:push@example.com", server.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, keys.PublicKey, n.PublicKey())

	err := n.NotifySubmission(ctx, model.ContactSubmission{ID: 3, Email: "a@b.co", Phone: "555", Message: "hello"})
	require.Error(t, err, "the broken endpoint is reported")
	assert.Contains(t, err.Error(), "status 400")

	mu.Lock()
	require.Len(t, requests, 1)
	req := requests[0]
	mu.Unlock()
	assert.Equal(t, "aes128gcm", req.Header.Get("Content-Encoding"))
	assert.Contains(t, req.Header.Get("Authorization"), "vapid t=")
	assert.Contains(t, req.Header.Get("Authorization"), "k="+keys.PublicKey)

	assert.Equal(t, []int64{2}, store.deleted, "expired subscription is removed")
}

func TestNotifyAll_NoSubscriptions(t *testing.T) {
	n := newNotifier(&memoryStore{}, testKeys(t), "mailto:push@example.com", http.DefaultClient, slog.Default())
	assert.NoError(t, n.NotifyAll(context.Background(), payload{Title: "t", Body: "b"}))
}

func TestNotifyAll_InvalidSubscription(t *testing.T) {
	store := &memoryStore{}
	_, err := store.Subscribe(context.Background(), 1, "not json")
	require.NoError(t, err)

	n := NewNotifier(store, testKeys(t), "mailto:push@example.com", slog.Default())
	err = n.NotifyAll(context.Background(), payload{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode push subscription 1")
}
