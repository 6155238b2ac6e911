package internal

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semp-gateway/config"
	"semp-gateway/internal/api"
	"semp-gateway/internal/db"
	"semp-gateway/internal/events"
	"semp-gateway/internal/gateway"
	"semp-gateway/internal/inventory"
	"semp-gateway/internal/notification"
	"semp-gateway/internal/store"
)

// pushService stands in for a browser push service.
type pushService struct {
	mu       sync.Mutex
	paths    []string
	response atomic.Int32
}

func (p *pushService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.paths = append(p.paths, r.URL.Path)
	p.mu.Unlock()
	w.WriteHeader(int(p.response.Load()))
}

func (p *pushService) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paths)
}

type stack struct {
	gateway   *gateway.Gateway
	router    *gin.Engine
	store     store.Store
	publisher *events.Fanout
}

func newStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := db.Init(&config.DatabaseConfig{DSN: "file:" + t.Name() + "?mode=memory&cache=shared", MaxOpenConns: 1})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	options := &webpush.Options{
		VAPIDPublicKey:  publicKey,
		VAPIDPrivateKey: privateKey,
		Subscriber:      "ops@example.com",
		TTL:             60,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	appStore := store.NewGormStore(gormDB)
	workerPool := notification.NewWorkerPool(2, appStore, options)
	workerPool.Start(ctx)
	publisher := events.NewFanout(workerPool)

	gw := gateway.New(gateway.Info{Name: "IntegrationGate", UID: "uid-1", Address: "127.0.0.1"})
	h := api.NewHandler(gw, appStore, options, publisher)
	return &stack{
		gateway:   gw,
		router:    api.NewRouter(h, api.RouterConfig{CacheTTL: time.Minute}),
		store:     appStore,
		publisher: publisher,
	}
}

func (s *stack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// subscribe registers a push subscription with freshly generated browser keys.
func (s *stack) subscribe(t *testing.T, endpoint string, deviceIDs ...string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	w := s.do(t, http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint":          endpoint,
		"p256dh":            base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		"auth":              base64.RawURLEncoding.EncodeToString(auth),
		"subscribedDevices": deviceIDs,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func deviceBody(name string) map[string]any {
	return map[string]any{"device": map[string]any{
		"name":                 name,
		"type":                 "WashingMachine",
		"measurementMethod":    "Measurement",
		"interruptionsAllowed": false,
		"maxPower":             2200,
		"emSignalsAccepted":    true,
		"status":               "Off",
		"vendor":               "Vendor",
		"serialNr":             "WM-1",
		"absoluteTimestamps":   false,
		"minOnTime":            1800,
	}}
}

// TestDeviceEventsReachPushSubscribers drives a device through the HTTP API
// and checks that subscribers of that device receive web push messages.
func TestDeviceEventsReachPushSubscribers(t *testing.T) {
	push := &pushService{}
	push.response.Store(http.StatusCreated)
	pushServer := httptest.NewServer(push)
	defer pushServer.Close()

	s := newStack(t)
	s.subscribe(t, pushServer.URL+"/push/washer", "washer")
	s.subscribe(t, pushServer.URL+"/push/other", "dryer")

	w := s.do(t, http.MethodPost, "/api/devices/washer", deviceBody("Washer"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Eventually(t, func() bool { return push.count() == 1 }, 5*time.Second, 20*time.Millisecond)

	w = s.do(t, http.MethodPost, "/api/devices/washer/planningRequests", map[string]any{
		"planningRequest": map[string]any{"earliestStart": 0, "latestEnd": 3600, "minDuration": 1800, "maxDuration": 3600},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Eventually(t, func() bool { return push.count() == 2 }, 5*time.Second, 20*time.Millisecond)

	w = s.do(t, http.MethodGet, "/api/devices/washer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"minOnTime":1800`)

	push.mu.Lock()
	assert.Equal(t, []string{"/push/washer", "/push/washer"}, push.paths)
	push.mu.Unlock()
}

// TestExpiredSubscriptionIsRemoved checks that a 410 from the push service
// deletes the subscription.
func TestExpiredSubscriptionIsRemoved(t *testing.T) {
	push := &pushService{}
	push.response.Store(http.StatusGone)
	pushServer := httptest.NewServer(push)
	defer pushServer.Close()

	s := newStack(t)
	endpoint := pushServer.URL + "/push/gone"
	s.subscribe(t, endpoint, "washer")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/devices/washer", deviceBody("Washer")).Code)

	assert.Eventually(t, func() bool {
		_, err := s.store.GetSubscription(context.Background(), endpoint)
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
}

// TestInventorySyncFeedsAPI registers devices from an upstream inventory and
// reads them back through the API.
func TestInventorySyncFeedsAPI(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp inventory.ApiResponse
		resp.Data.Page = 1
		resp.Data.PageSize = 10
		resp.Data.Total = 1
		resp.Data.Items = []inventory.ApiItem{{
			DeviceID:          "F-11223344-112233445566-00",
			Name:              "Heat pump",
			Type:              "HeatPump",
			MeasurementMethod: "Measurement",
			MaxPower:          3000,
			Status:            "On",
			Vendor:            "Vendor",
			SerialNr:          "HP-1",
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer upstream.Close()

	s := newStack(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/devices", nil).Code)

	svc := inventory.NewService(config.SyncConfig{
		Enabled:  true,
		Interval: time.Hour,
		Request:  config.SyncRequest{URL: upstream.URL, PageSize: 10},
	}, s.gateway, s.publisher)
	_, err := svc.SyncOnce(context.Background())
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deviceId":"F-11223344-112233445566-00"`)
	assert.NotContains(t, w.Body.String(), "minOnTime")
}
