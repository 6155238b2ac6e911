package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"semp-gateway/internal/events"
	"semp-gateway/internal/gateway"
	"semp-gateway/internal/model"
	"semp-gateway/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var simpleDeviceKeys = []string{
	"absoluteTimestamps",
	"deviceId",
	"emSignalsAccepted",
	"interruptionsAllowed",
	"maxPower",
	"measurementMethod",
	"name",
	"serialNr",
	"status",
	"type",
	"vendor",
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testAPI struct {
	router    *gin.Engine
	gateway   *gateway.Gateway
	publisher *recordingPublisher
	store     store.Store
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, gormDB.AutoMigrate(&model.PushSubscription{}, &model.SubscribedDevice{}))
	return store.NewGormStore(gormDB)
}

func newTestAPI(t *testing.T, cfg RouterConfig) *testAPI {
	t.Helper()
	gw := gateway.New(gateway.Info{Name: "TestGate", UID: "1234UID", Address: "127.0.0.1"})
	pub := &recordingPublisher{}
	st := newTestStore(t)
	h := NewHandler(gw, st, &webpush.Options{VAPIDPublicKey: "test-public-key"}, pub)
	return &testAPI{
		router:    NewRouter(h, cfg),
		gateway:   gw,
		publisher: pub,
		store:     st,
	}
}

func testInfo(id, name string) model.Info {
	return model.Info{
		DeviceID:             id,
		Name:                 name,
		Type:                 "Dishwasher",
		MeasurementMethod:    "Estimate",
		InterruptionsAllowed: true,
		MaxPower:             1000,
		EMSignalsAccepted:    true,
		Status:               model.StatusOff,
		Vendor:               "Tendor",
		SerialNr:             "1Serial",
		AbsoluteTimestamps:   false,
	}
}

// device1 is a simple device; device2 carries the scheduling extension.
func device1() *model.Device {
	return model.NewDevice(testInfo("1234", "Test1"), nil)
}

func device2() *model.Device {
	return model.NewDevice(testInfo("12345", "Test2"), &model.Scheduling{OptionalEnergy: false, MinOnTime: 600, MinOffTime: 3600})
}

func devicePayload(id, name string) map[string]any {
	return map[string]any{
		"deviceId":             id,
		"name":                 name,
		"type":                 "Dishwasher",
		"measurementMethod":    "Estimate",
		"interruptionsAllowed": true,
		"maxPower":             1000,
		"emSignalsAccepted":    true,
		"status":               "Off",
		"vendor":               "Tendor",
		"serialNr":             "1Serial",
		"absoluteTimestamps":   false,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type response struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r), w.Body.String())
	return r
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	return out
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
