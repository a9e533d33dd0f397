package capi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackify-io/trackify/capi/capitest"
	"github.com/trackify-io/trackify/config"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/config/types"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/dbtest"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/db/query"
	"github.com/trackify-io/trackify/eventlog"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/hasher"
	"github.com/trackify-io/trackify/pkg/identity"
	"github.com/trackify-io/trackify/pkg/pool"
	"github.com/trackify-io/trackify/settings"
)

type graphAPI = capitest.GraphAPI

var newGraphAPI = capitest.NewGraphAPI

type fixture struct {
	engine *Engine
	store  *settings.Store
	db     *db.DB
	logger *eventlog.Logger
}

func newFixture(t *testing.T, api *graphAPI, pixels ...string) *fixture {
	cfg := config.New().Tracking
	cfg.GraphURL = api.URL
	for _, id := range pixels {
		cfg.Pixels = append(cfg.Pixels, modules.Pixel{
			Name:        "pixel " + id,
			PixelID:     id,
			AccessToken: types.Password("token-" + id),
			Enabled:     true,
		})
	}
	store := settings.New(&cfg, nil)

	d := dbtest.NewSQLite(t)
	var logCfg modules.EventLogConfig
	require.NoError(t, defaults.Set(&logCfg))
	logger, err := eventlog.New(logCfg, d)
	require.NoError(t, err)

	engine := New(Options{
		Settings: store,
		Recorder: logger,
	})
	return &fixture{engine: engine, store: store, db: d, logger: logger}
}

func (f *fixture) logs(t *testing.T) []*entities.EventLog {
	list, err := f.db.EventLogs.List(context.Background(), &query.EventLogQuery{})
	require.NoError(t, err)
	return list
}

func (f *fixture) aggregate(t *testing.T) *entities.EventAnalytics {
	rows, err := f.db.Analytics.List(context.Background(), &query.AnalyticsQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func purchaseData() model.CustomData {
	return model.CustomData{"value": 99.99, "currency": "USD", "content_ids": []string{"42"}}
}

func TestSendEventSuccess(t *testing.T) {
	api := newGraphAPI(t, map[string][2]string{
		"111": {"200", `{"events_received":1,"messages":[],"fbtrace_id":"AbC"}`},
	})
	f := newFixture(t, api, "111")
	ctx := context.Background()

	result, err := f.engine.SendEvent(ctx, "Purchase", purchaseData(), model.UserData{}, "purchase_42")
	require.NoError(t, err)
	assert.Equal(t, "purchase_42", result.EventID)
	assert.False(t, result.Queued)
	require.Contains(t, result.Pixels, "111")
	assert.True(t, result.Pixels["111"].Success)
	assert.Equal(t, 200, result.Pixels["111"].ResponseCode)
	assert.Equal(t, 1, result.Pixels["111"].EventsReceived)
	assert.Equal(t, "AbC", result.Pixels["111"].FBTraceID)

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "token-111", calls[0].Body["access_token"])
	assert.NotContains(t, calls[0].Body, "test_event_code")
	data := calls[0].Body["data"].([]interface{})
	require.Len(t, data, 1)
	event := data[0].(map[string]interface{})
	assert.Equal(t, "Purchase", event["event_name"])
	assert.Equal(t, "purchase_42", event["event_id"])
	assert.Equal(t, "website", event["action_source"])
	assert.Equal(t, "USD", event["custom_data"].(map[string]interface{})["currency"])

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, entities.LogStatusSuccess, logs[0].Status)
	assert.Equal(t, 200, logs[0].ResponseCode)
	assert.Equal(t, "purchase_42", logs[0].EventID)
	assert.Equal(t, "111", logs[0].PixelID)

	agg := f.aggregate(t)
	assert.EqualValues(t, 1, agg.TotalEvents)
	assert.EqualValues(t, 1, agg.SuccessfulEvents)
	assert.EqualValues(t, 0, agg.FailedEvents)
}

func TestSendEventAPIError(t *testing.T) {
	api := newGraphAPI(t, map[string][2]string{
		"111": {"400", `{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`},
	})
	f := newFixture(t, api, "111")

	result, err := f.engine.SendEvent(context.Background(), "Purchase", purchaseData(), nil, "purchase_42")
	require.Error(t, err)
	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Contains(t, err.Error(), "Invalid parameter")
	assert.Equal(t, "Invalid parameter", result.Pixels["111"].Error)
	assert.Equal(t, 400, result.Pixels["111"].ResponseCode)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, entities.LogStatusError, logs[0].Status)
	assert.Equal(t, "Invalid parameter", logs[0].ErrorMessage)
	assert.Equal(t, 400, logs[0].ResponseCode)

	agg := f.aggregate(t)
	assert.EqualValues(t, 1, agg.TotalEvents)
	assert.EqualValues(t, 0, agg.SuccessfulEvents)
	assert.EqualValues(t, 1, agg.FailedEvents)
}

func TestSendEventConfigErrors(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")
	ctx := context.Background()

	_, err := f.store.Update(ctx, func(cfg *modules.TrackingConfig) { cfg.CAPIEnabled = false })
	require.NoError(t, err)
	_, err = f.engine.SendEvent(ctx, "Purchase", purchaseData(), nil, "")
	assert.Same(t, ErrCAPIDisabled, err)

	_, err = f.store.Update(ctx, func(cfg *modules.TrackingConfig) {
		cfg.CAPIEnabled = true
		cfg.Events["Lead"] = modules.EventConfig{Pixel: true, CAPI: false}
	})
	require.NoError(t, err)
	_, err = f.engine.SendEvent(ctx, "Lead", nil, nil, "")
	assert.True(t, errors.Is(err, ErrEventDisabled))
	var configErr *ConfigError
	assert.True(t, errors.As(err, &configErr))

	_, err = f.engine.SendEvent(ctx, "MyCustomEvent", nil, nil, "")
	assert.True(t, errors.Is(err, ErrEventDisabled))

	_, err = f.store.Update(ctx, func(cfg *modules.TrackingConfig) { cfg.Pixels[0].Enabled = false })
	require.NoError(t, err)
	_, err = f.engine.SendEvent(ctx, "Purchase", nil, nil, "")
	assert.Same(t, ErrNoActivePixel, err)

	assert.Empty(t, api.Calls())
	assert.Empty(t, f.logs(t))
}

func TestSendEventPartialFailure(t *testing.T) {
	api := newGraphAPI(t, map[string][2]string{
		"111": {"200", `{"events_received":1,"messages":[]}`},
		"222": {"500", `{"error":{"message":"Service temporarily unavailable"}}`},
	})
	f := newFixture(t, api, "111", "222")

	result, err := f.engine.SendEvent(context.Background(), "Purchase", purchaseData(), nil, "purchase_42")
	require.NoError(t, err)
	require.Len(t, result.Pixels, 2)
	assert.True(t, result.Pixels["111"].Success)
	assert.False(t, result.Pixels["222"].Success)
	assert.Equal(t, 500, result.Pixels["222"].ResponseCode)
	assert.Equal(t, []string{"222"}, result.Pixels.Failed())

	logs := f.logs(t)
	require.Len(t, logs, 2)
	statuses := map[string]string{}
	for _, l := range logs {
		statuses[l.PixelID] = l.Status
	}
	assert.Equal(t, map[string]string{"111": "success", "222": "error"}, statuses)
}

func TestSendEventTransportError(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")
	api.Close()

	result, err := f.engine.SendEvent(context.Background(), "Lead", nil, nil, "")
	require.Error(t, err)
	assert.NotEmpty(t, result.Pixels["111"].Error)
	assert.Zero(t, result.Pixels["111"].ResponseCode)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, entities.LogStatusError, logs[0].Status)
	assert.NotEmpty(t, logs[0].ErrorMessage)
}

func TestSendEventSharedEventID(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.engine.SendEvent(ctx, "AddToCart", model.CustomData{"value": 10}, nil, "addtocart_7")
		require.NoError(t, err)
	}
	logs := f.logs(t)
	require.Len(t, logs, 2)
	assert.Equal(t, logs[0].EventID, logs[1].EventID)
}

func TestSendEventUserData(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")

	rc := &identity.RequestContext{IP: "203.0.113.7", UserAgent: "Mozilla/5.0", FBP: "fb.1.1.2", SourceURL: "https://shop.example/p/1"}
	ctx := identity.WithContext(context.Background(), rc)
	ctx = identity.WithCustomer(ctx, &identity.Customer{Email: " John@Example.com ", Phone: "+1 (555) 123-4567"})

	_, err := f.engine.SendEvent(ctx, "Lead", nil, nil, "")
	require.NoError(t, err)

	_, err = f.engine.SendEvent(ctx, "Lead", nil, model.UserData{"em": "jane@example.com"}, "")
	require.NoError(t, err)

	calls := api.Calls()
	require.Len(t, calls, 2)
	first := calls[0].Body["data"].([]interface{})[0].(map[string]interface{})
	user := first["user_data"].(map[string]interface{})
	assert.Equal(t, hasher.Email("john@example.com"), user["em"])
	assert.Equal(t, hasher.Phone("15551234567"), user["ph"])
	assert.Equal(t, "203.0.113.7", user["client_ip_address"])
	assert.Equal(t, "Mozilla/5.0", user["client_user_agent"])
	assert.Equal(t, "fb.1.1.2", user["fbp"])
	assert.Equal(t, "https://shop.example/p/1", first["event_source_url"])

	second := calls[1].Body["data"].([]interface{})[0].(map[string]interface{})
	user = second["user_data"].(map[string]interface{})
	assert.Equal(t, hasher.Email("jane@example.com"), user["em"])
	assert.NotContains(t, user, "ph")
}

func TestTestEventCode(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")
	ctx := context.Background()

	_, err := f.store.Update(ctx, func(cfg *modules.TrackingConfig) { cfg.Pixels[0].TestEventCode = "TEST42" })
	require.NoError(t, err)
	_, err = f.engine.SendEvent(ctx, "Lead", nil, nil, "")
	require.NoError(t, err)

	_, err = f.store.Update(ctx, func(cfg *modules.TrackingConfig) { cfg.TestMode = true })
	require.NoError(t, err)
	result, err := f.engine.SendTestEvent(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.EventID, "test_"))

	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.NotContains(t, calls[0].Body, "test_event_code")
	assert.Equal(t, "TEST42", calls[1].Body["test_event_code"])
	event := calls[1].Body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "PageView", event["event_name"])
}

func TestQueue(t *testing.T) {
	for _, batching := range []bool{true, false} {
		api := newGraphAPI(t, nil)
		f := newFixture(t, api, "111", "222")
		ctx := context.Background()
		_, err := f.store.Update(ctx, func(cfg *modules.TrackingConfig) {
			cfg.UseQueue = true
			cfg.BatchSending = batching
		})
		require.NoError(t, err)

		qctx := WithQueue(ctx)
		for _, name := range []string{"ViewContent", "AddToCart", "InitiateCheckout"} {
			result, err := f.engine.SendEvent(qctx, name, nil, nil, "")
			require.NoError(t, err)
			assert.True(t, result.Queued)
			assert.Empty(t, result.Pixels)
		}
		assert.Equal(t, 3, Pending(qctx))
		assert.Empty(t, api.Calls())

		require.NoError(t, f.engine.Flush(qctx))
		assert.Equal(t, 0, Pending(qctx))

		calls := api.Calls()
		if batching {
			require.Len(t, calls, 2)
			for _, call := range calls {
				data := call.Body["data"].([]interface{})
				require.Len(t, data, 3)
				names := []string{}
				for _, d := range data {
					names = append(names, d.(map[string]interface{})["event_name"].(string))
				}
				assert.Equal(t, []string{"ViewContent", "AddToCart", "InitiateCheckout"}, names)
			}
		} else {
			assert.Len(t, calls, 6)
		}
		assert.Len(t, f.logs(t), 6)
	}
}

func TestQueueWithoutUseQueue(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")

	qctx := WithQueue(context.Background())
	result, err := f.engine.SendEvent(qctx, "Lead", nil, nil, "")
	require.NoError(t, err)
	assert.False(t, result.Queued)
	assert.Len(t, api.Calls(), 1)
	assert.NoError(t, f.engine.Flush(qctx))
	assert.Len(t, api.Calls(), 1)
}

func TestMiddleware(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")
	_, err := f.store.Update(context.Background(), func(cfg *modules.TrackingConfig) {
		cfg.UseQueue = true
		cfg.BatchSending = true
	})
	require.NoError(t, err)

	var queued atomic.Int32
	handler := f.engine.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 2; i++ {
			result, err := f.engine.SendEvent(r.Context(), "AddToCart", nil, nil, "")
			if err == nil && result.Queued {
				queued.Add(1)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, 2, queued.Load())

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Body["data"], 2)
}

func TestMiddlewarePool(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")
	_, err := f.store.Update(context.Background(), func(cfg *modules.TrackingConfig) {
		cfg.UseQueue = true
	})
	require.NoError(t, err)

	flushPool := pool.NewPool(10, 1, nil)
	engine := New(Options{Settings: f.store, Recorder: f.logger, Pool: flushPool})

	handler := engine.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := engine.SendEvent(r.Context(), "Lead", nil, nil, "lead_pool")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// shutdown waits for the queued flush
	flushPool.Shutdown()
	calls := api.Calls()
	require.Len(t, calls, 1)
	event := calls[0].Body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "lead_pool", event["event_id"])

	// a stopped pool falls back to flushing on the request goroutine
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, api.Calls(), 2)
}

func TestSendBatch(t *testing.T) {
	api := newGraphAPI(t, nil)
	f := newFixture(t, api, "111")
	ctx := context.Background()
	_, err := f.store.Update(ctx, func(cfg *modules.TrackingConfig) {
		cfg.Events["Search"] = modules.EventConfig{}
	})
	require.NoError(t, err)

	events := []model.Event{
		{EventName: "Lead", EventID: "lead_1", EventTime: 1700000000, ActionSource: model.ActionSourceWebsite, UserData: model.UserData{}},
		{EventName: "Search", EventID: "search_1", EventTime: 1700000000, ActionSource: model.ActionSourceWebsite, UserData: model.UserData{}},
	}
	results, err := f.engine.SendBatch(ctx, events)
	require.NoError(t, err)
	assert.True(t, results["111"].Success)

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Body["data"], 1)

	_, err = f.engine.SendBatch(ctx, events[1:])
	assert.Same(t, ErrEventDisabled, err)

	_, err = f.engine.SendBatch(ctx, []model.Event{{EventName: "Lead", EventID: "x", EventTime: 1, ActionSource: "fax"}})
	assert.Error(t, err)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		scenario string
		res      *Response
		expected model.PixelResult
	}{
		{
			scenario: "success",
			res:      &Response{StatusCode: 200, ResponseBody: []byte(`{"events_received":2,"messages":["a"],"fbtrace_id":"T"}`)},
			expected: model.PixelResult{PixelID: "1", Success: true, ResponseCode: 200, EventsReceived: 2, Messages: []string{"a"}, FBTraceID: "T"},
		},
		{
			scenario: "api error",
			res:      &Response{StatusCode: 400, ResponseBody: []byte(`{"error":{"message":"Invalid OAuth access token.","fbtrace_id":"X"}}`)},
			expected: model.PixelResult{PixelID: "1", ResponseCode: 400, Error: "Invalid OAuth access token.", FBTraceID: "X"},
		},
		{
			scenario: "api error without message",
			res:      &Response{StatusCode: 502, ResponseBody: []byte(`{}`)},
			expected: model.PixelResult{PixelID: "1", ResponseCode: 502, Error: genericAPIError},
		},
		{
			scenario: "malformed body",
			res:      &Response{StatusCode: 200, ResponseBody: []byte(`<html>oops</html>`)},
			expected: model.PixelResult{PixelID: "1", ResponseCode: 200, Error: genericAPIError},
		},
		{
			scenario: "transport error",
			res:      &Response{Error: errors.New("dial tcp: connection refused")},
			expected: model.PixelResult{PixelID: "1", Error: "dial tcp: connection refused"},
		},
	}
	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			assert.Equal(t, test.expected, *parseResponse("1", test.res))
		})
	}
}

func TestResponseDocument(t *testing.T) {
	assert.Nil(t, responseDocument(nil))
	assert.Equal(t, entities.JSON(`{"a":1}`), responseDocument([]byte(`{"a":1}`)))
	assert.Equal(t, entities.JSON(`{"body":"oops"}`), responseDocument([]byte(`oops`)))
}
