package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/tg-storefront/internal/auth"
	"github.com/01moynul/tg-storefront/internal/bot"
	"github.com/01moynul/tg-storefront/internal/catalog"
	"github.com/01moynul/tg-storefront/internal/database/dbtest"
	"github.com/01moynul/tg-storefront/internal/handlers"
	"github.com/01moynul/tg-storefront/internal/logger"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/notify"
	"github.com/01moynul/tg-storefront/internal/outbox"
	"github.com/01moynul/tg-storefront/internal/settings"
)

var secret = []byte("test-secret")

type fixture struct {
	router   *gin.Engine
	outbox   *outbox.Store
	relay    *notify.Relay
	dispatch *bot.Dispatcher
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.New(t)
	dbtest.SeedProduct(t, db, "MUG", "Mug", 150, "UAH", true)
	dbtest.SeedProduct(t, db, "OFF", "Off", 10, "UAH", false)

	box := outbox.New(db)
	store := settings.New(db)
	require.NoError(t, store.Set(context.Background(), models.SettingPrimaryChannel, "100"))
	require.NoError(t, store.Set(context.Background(), models.SettingFallbackChannel, "200"))
	relay := notify.NewRelay(store,
		box.Notifications(bot.Admin, models.ChannelPrimary),
		box.Notifications(bot.Shop, models.ChannelFallback),
		logger.Discard())

	echo := bot.HandlerFunc(func(_ context.Context, u bot.Update) ([]bot.Reply, error) {
		return []bot.Reply{bot.Text("echo: " + u.Text)}, nil
	})
	d := bot.NewDispatcher(bot.Shop, echo, box.For(bot.Shop), 1, 1, logger.Discard())

	h := &handlers.Handlers{
		Catalog:     catalog.New(db, 6, "UAH"),
		Outbox:      box,
		Dispatchers: map[string]*bot.Dispatcher{bot.Shop: d},
		Failover:    relay,
		JWTSecret:   secret,
		Log:         logger.Discard(),
	}
	return &fixture{router: SetupRouter(h, "https://shop.example"), outbox: box, relay: relay, dispatch: d}
}

func token(t *testing.T, botName string) string {
	t.Helper()
	tok, err := auth.GenerateToken(secret, botName, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (f *fixture) do(method, path, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	f := setup(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/ping", "", nil).Code)
}

func TestCatalogAPI(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodGet, "/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))

	var page struct {
		Items   []models.Product `json:"items"`
		Total   int              `json:"total"`
		HasNext bool             `json:"hasNext"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "MUG", page.Items[0].SKU)
	assert.False(t, page.HasNext)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/catalog?page=-1", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/catalog/MUG", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/catalog/OFF", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/categories", "", nil).Code)
}

func TestUpdateToOutboxRoundTrip(t *testing.T) {
	f := setup(t)
	shop := token(t, bot.Shop)

	// 1. Post an update and process it synchronously.
	update := bot.Update{ChatID: 7, From: bot.User{ID: 7}, Text: "hi"}
	w := f.do(http.MethodPost, "/v1/bots/shop/updates", shop, update)
	require.Equal(t, http.StatusAccepted, w.Code)

	// The queue holds one update; a second one is rejected.
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodPost, "/v1/bots/shop/updates", shop, update).Code)

	f.dispatch.Process(context.Background(), update)

	// 2. Poll the outbox.
	w = f.do(http.MethodGet, "/v1/bots/shop/outbox", shop, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Messages []models.OutboxMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Messages, 1)
	assert.Equal(t, int64(7), res.Messages[0].ChatID)

	var reply bot.Reply
	require.NoError(t, json.Unmarshal(res.Messages[0].Payload, &reply))
	assert.Equal(t, "echo: hi", reply.Text)

	// 3. Acknowledge it.
	ack := "/v1/bots/shop/outbox/" + jsonNumber(res.Messages[0].ID) + "/ack"
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, ack, shop, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/bots/shop/outbox/999/ack", shop, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/bots/shop/outbox/abc/ack", shop, nil).Code)

	pending, err := f.outbox.Pending(context.Background(), bot.Shop, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFailedNotificationReachesFallback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := token(t, bot.Admin)

	// 1. The relay hands the notification to the admin bot.
	require.NoError(t, f.relay.Notify(ctx, "🆕 New order #1"))
	pending, err := f.outbox.Pending(ctx, bot.Admin, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	failPath := "/v1/bots/admin/outbox/" + jsonNumber(pending[0].ID) + "/fail"

	// 2. The transport reports that the admin chat is unreachable.
	w := f.do(http.MethodPost, failPath, admin, map[string]string{"error": "Forbidden: bot was blocked by the user"})
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Rerouted bool `json:"rerouted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Rerouted)

	// 3. The shop bot now holds the same text for the fallback chat.
	fallback, err := f.outbox.Pending(ctx, bot.Shop, 10)
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, int64(200), fallback[0].ChatID)
	var reply bot.Reply
	require.NoError(t, json.Unmarshal(fallback[0].Payload, &reply))
	assert.Equal(t, "🆕 New order #1", reply.Text)

	// A repeated report does not send it twice.
	w = f.do(http.MethodPost, failPath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Rerouted)
	fallback, err = f.outbox.Pending(ctx, bot.Shop, 10)
	require.NoError(t, err)
	assert.Len(t, fallback, 1)

	// The fallback is the last channel.
	w = f.do(http.MethodPost, "/v1/bots/shop/outbox/"+jsonNumber(fallback[0].ID)+"/fail", token(t, bot.Shop), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Rerouted)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/bots/admin/outbox/999/fail", admin, nil).Code)
}

func TestTransportAuth(t *testing.T) {
	f := setup(t)
	update := bot.Update{ChatID: 7, From: bot.User{ID: 7}, Text: "hi"}

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/v1/bots/shop/updates", "", update).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/v1/bots/shop/updates", token(t, bot.Admin), update).Code)

	// The admin bot is not registered in this fixture.
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/bots/admin/updates", token(t, bot.Admin), update).Code)
}

func TestPostUpdate_Validation(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/v1/bots/shop/updates", token(t, bot.Shop), map[string]any{"text": "no chat"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
