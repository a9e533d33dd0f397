// Package capi delivers events to the Meta Conversions API.
package capi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/trackify-io/trackify/builder"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/constants"
	"github.com/trackify-io/trackify/db/entities"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/identity"
	"github.com/trackify-io/trackify/pkg/log"
	"github.com/trackify-io/trackify/pkg/loglimiter"
	"github.com/trackify-io/trackify/pkg/metrics"
	"github.com/trackify-io/trackify/pkg/pool"
	"github.com/trackify-io/trackify/settings"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	genericAPIError = "Unexpected response from Meta API"

	flushSubmitTimeout = 100 * time.Millisecond
	rejectLogWindow    = time.Minute
)

// Recorder persists delivery attempts.
type Recorder interface {
	Log(ctx context.Context, record *entities.EventLog, level modules.EventLogLevel) (int64, bool, error)
}

type Options struct {
	Settings  *settings.Store
	Deliverer Deliverer
	Recorder  Recorder
	Metrics   *metrics.Metrics
	Log       *zap.SugaredLogger

	// Pool runs queued flushes after the response is written. Without it
	// Middleware flushes before returning.
	Pool *pool.Pool
}

type Engine struct {
	settings   *settings.Store
	deliverer  Deliverer
	recorder   Recorder
	metrics    *metrics.Metrics
	log        *zap.SugaredLogger
	pool       *pool.Pool
	logLimiter *loglimiter.Limiter
}

var _ builder.Sender = (*Engine)(nil)

func New(opts Options) *Engine {
	e := &Engine{
		settings:   opts.Settings,
		deliverer:  opts.Deliverer,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		log:        log.Named(opts.Log, "capi"),
		pool:       opts.Pool,
		logLimiter: loglimiter.NewLimiter(rejectLogWindow),
	}
	if e.metrics == nil {
		e.metrics = metrics.NewDiscard()
	}
	if e.deliverer == nil {
		e.deliverer = NewHTTPDeliverer(e.settings.Get().TimeoutDuration())
	}
	return e
}

// GenerateEventID returns an id shared by the browser pixel and the server
// event so Meta can deduplicate them.
func (e *Engine) GenerateEventID(prefix, identifier string) string {
	return builder.GenerateEventID(prefix, identifier)
}

func (e *Engine) gate(cfg *modules.TrackingConfig, name string) error {
	if !cfg.CAPIEnabled {
		return ErrCAPIDisabled
	}
	if !cfg.IsEventEnabled(name, modules.ChannelCAPI) {
		return fmt.Errorf("%w: %s", ErrEventDisabled, name)
	}
	if len(cfg.ActivePixels()) == 0 {
		return ErrNoActivePixel
	}
	return nil
}

// SendEvent builds an event and dispatches it. Without userData the user
// data is derived from the request context and customer carried by ctx.
// Raw identity values in userData are hashed.
func (e *Engine) SendEvent(ctx context.Context, name string, customData model.CustomData, userData model.UserData, eventID string) (*model.DeliveryResult, error) {
	cfg := e.settings.Get()
	if err := e.gate(cfg, name); err != nil {
		return nil, err
	}

	rc, _ := identity.FromContext(ctx)
	b := builder.New(name, rc, builder.WithMatching(cfg.AdvancedMatching)).WithEventID(eventID)
	if len(userData) == 0 {
		if customer, ok := identity.CustomerFromContext(ctx); ok {
			b.AddCustomer(customer)
		}
	} else {
		for key, value := range userData {
			b.AddUserData(key, value)
		}
	}
	for key, value := range customData {
		b.AddCustomData(key, value)
	}

	return e.Dispatch(ctx, b.Event())
}

// Dispatch sends a finished event, or queues it when use_queue is on and ctx
// carries a queue.
func (e *Engine) Dispatch(ctx context.Context, event model.Event) (*model.DeliveryResult, error) {
	cfg := e.settings.Get()
	if err := e.gate(cfg, event.EventName); err != nil {
		return nil, err
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	e.metrics.EventTotalCounter.With("event_name", event.EventName).Add(1)

	if cfg.UseQueue {
		if q, ok := queueFromContext(ctx); ok {
			q.push(event)
			e.metrics.EventQueuedCounter.With("event_name", event.EventName).Add(1)
			return &model.DeliveryResult{EventID: event.EventID, Queued: true}, nil
		}
	}

	results := e.deliver(ctx, cfg, []model.Event{event})
	result := &model.DeliveryResult{EventID: event.EventID, Pixels: results}
	if results.AllFailed() {
		return result, &DeliveryError{Results: results}
	}
	return result, nil
}

// SendBatch sends events in one request per pixel. Events whose name is
// disabled are dropped.
func (e *Engine) SendBatch(ctx context.Context, events []model.Event) (model.Results, error) {
	cfg := e.settings.Get()
	if !cfg.CAPIEnabled {
		return nil, ErrCAPIDisabled
	}
	if len(cfg.ActivePixels()) == 0 {
		return nil, ErrNoActivePixel
	}

	batch := make([]model.Event, 0, len(events))
	for _, event := range events {
		if !cfg.IsEventEnabled(event.EventName, modules.ChannelCAPI) {
			e.log.Debugf("dropping disabled event %s (%s) from batch", event.EventName, event.EventID)
			continue
		}
		if err := event.Validate(); err != nil {
			return nil, fmt.Errorf("event %s: %w", event.EventID, err)
		}
		batch = append(batch, event)
	}
	if len(batch) == 0 {
		return nil, ErrEventDisabled
	}

	results := e.deliver(ctx, cfg, batch)
	if results.AllFailed() {
		return results, &DeliveryError{Results: results}
	}
	return results, nil
}

// Flush sends the events queued on ctx, as one batch per pixel when
// batch_sending is on or one call per event otherwise.
func (e *Engine) Flush(ctx context.Context) error {
	q, ok := queueFromContext(ctx)
	if !ok {
		return nil
	}
	events := q.drain()
	if len(events) == 0 {
		return nil
	}

	cfg := e.settings.Get()
	e.log.Debugf("flushing %d queued event(s)", len(events))
	if cfg.BatchSending {
		_, err := e.SendBatch(ctx, events)
		return err
	}

	var errs []error
	for _, event := range events {
		results := e.deliver(ctx, cfg, []model.Event{event})
		if results.AllFailed() {
			errs = append(errs, &DeliveryError{Results: results})
		}
	}
	return errors.Join(errs...)
}

// Middleware opens a queue for every request and flushes it once the
// handler returns. The flush runs on the pool when one is configured and
// falls back to the request goroutine when the pool is full or stopped.
func (e *Engine) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithQueue(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
		if Pending(ctx) == 0 {
			return
		}

		ctx = context.WithoutCancel(ctx)
		flush := func() {
			if err := e.Flush(ctx); err != nil {
				e.log.Warnf("failed to flush queued events: %v", err)
			}
		}
		if e.pool != nil {
			err := e.pool.SubmitFn(flushSubmitTimeout, flush)
			if err == nil {
				return
			}
			e.log.Warnf("flushing inline: %v", err)
		}
		flush()
	})
}

// SendTestEvent sends a PageView to every active pixel regardless of the
// per-event switches.
func (e *Engine) SendTestEvent(ctx context.Context) (*model.DeliveryResult, error) {
	cfg := e.settings.Get()
	if len(cfg.ActivePixels()) == 0 {
		return nil, ErrNoActivePixel
	}
	rc, _ := identity.FromContext(ctx)
	event := builder.New(constants.EventPageView, rc).
		WithEventID(builder.GenerateEventID("test", "")).
		AddCustomData("test_event", true).
		Event()
	results := e.deliver(ctx, cfg, []model.Event{event})
	result := &model.DeliveryResult{EventID: event.EventID, Pixels: results}
	if results.AllFailed() {
		return result, &DeliveryError{Results: results}
	}
	return result, nil
}

type payload struct {
	Data          []model.Event `json:"data"`
	AccessToken   string        `json:"access_token"`
	TestEventCode string        `json:"test_event_code,omitempty"`
}

func (e *Engine) deliver(ctx context.Context, cfg *modules.TrackingConfig, events []model.Event) model.Results {
	pixels := cfg.ActivePixels()
	results := make(model.Results, len(pixels))
	var mux sync.Mutex

	var g errgroup.Group
	for _, pixel := range pixels {
		pixel := pixel
		g.Go(func() error {
			result := e.deliverPixel(ctx, cfg, pixel, events)
			mux.Lock()
			results[pixel.PixelID] = result
			mux.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) deliverPixel(ctx context.Context, cfg *modules.TrackingConfig, pixel modules.Pixel, events []model.Event) *model.PixelResult {
	body, err := json.Marshal(payload{
		Data:          events,
		AccessToken:   string(pixel.AccessToken),
		TestEventCode: cfg.TestEventCode(pixel),
	})
	if err != nil {
		result := &model.PixelResult{PixelID: pixel.PixelID, Error: err.Error()}
		e.record(ctx, events, result, nil)
		return result
	}

	req := &Request{
		URL:     fmt.Sprintf("%s/%s/%s/events", cfg.GraphURL, cfg.APIVersion, pixel.PixelID),
		Method:  http.MethodPost,
		Payload: body,
		Timeout: cfg.TimeoutDuration(),
	}
	res := e.deliverer.Deliver(ctx, req)
	result := parseResponse(pixel.PixelID, res)

	e.metrics.DeliveryTotalCounter.With("pixel_id", pixel.PixelID).Add(1)
	e.metrics.DeliveryDurationHistogram.With("pixel_id", pixel.PixelID).Observe(res.Latency.Seconds())
	if result.Success {
		e.log.Debugf("pixel %s accepted %d event(s) in %s", pixel.PixelID, result.EventsReceived, res.Latency)
	} else {
		e.metrics.DeliveryFailedCounter.With("pixel_id", pixel.PixelID).Add(1)
		e.logRejected(pixel.PixelID, len(events), result.Error)
	}

	e.record(ctx, events, result, res.ResponseBody)
	return result
}

// logRejected warns at most once per window for each pixel, a misconfigured
// token otherwise fails every event.
func (e *Engine) logRejected(pixelID string, n int, reason string) {
	ok, suppressed := e.logLimiter.Allow(pixelID)
	if !ok {
		e.log.Debugf("pixel %s rejected %d event(s): %s", pixelID, n, reason)
		return
	}
	if suppressed > 0 {
		e.log.Warnf("pixel %s rejected %d event(s): %s (%d similar warnings suppressed)", pixelID, n, reason, suppressed)
		return
	}
	e.log.Warnf("pixel %s rejected %d event(s): %s", pixelID, n, reason)
}

func parseResponse(pixelID string, res *Response) *model.PixelResult {
	result := &model.PixelResult{PixelID: pixelID}
	if res.Error != nil {
		result.Error = res.Error.Error()
		return result
	}

	result.ResponseCode = res.StatusCode
	if !gjson.ValidBytes(res.ResponseBody) {
		result.Error = genericAPIError
		return result
	}
	doc := gjson.ParseBytes(res.ResponseBody)
	result.FBTraceID = doc.Get("fbtrace_id").String()
	if res.StatusCode != http.StatusOK {
		result.Error = doc.Get("error.message").String()
		if result.Error == "" {
			result.Error = genericAPIError
		}
		if result.FBTraceID == "" {
			result.FBTraceID = doc.Get("error.fbtrace_id").String()
		}
		return result
	}

	result.Success = true
	result.EventsReceived = int(doc.Get("events_received").Int())
	result.Messages = make([]string, 0)
	doc.Get("messages").ForEach(func(_, value gjson.Result) bool {
		result.Messages = append(result.Messages, value.String())
		return true
	})
	return result
}

func (e *Engine) record(ctx context.Context, events []model.Event, result *model.PixelResult, body []byte) {
	if e.recorder == nil {
		return
	}

	status, level := entities.LogStatusSuccess, modules.EventLogLevelInfo
	if !result.Success {
		status, level = entities.LogStatusError, modules.EventLogLevelError
	}
	responseData := responseDocument(body)
	for _, event := range events {
		eventData, _ := entities.NewJSON(event.CustomData)
		userData, _ := entities.NewJSON(event.UserData)
		record := &entities.EventLog{
			EventName:    event.EventName,
			EventID:      event.EventID,
			PixelID:      result.PixelID,
			EventTime:    event.EventTime,
			EventData:    eventData,
			UserData:     userData,
			Status:       status,
			ResponseCode: result.ResponseCode,
			ResponseData: responseData,
			ErrorMessage: result.Error,
		}
		if _, _, err := e.recorder.Log(ctx, record, level); err != nil {
			e.log.Errorf("failed to record delivery of %s: %v", event.EventID, err)
		}
	}
}

// responseDocument keeps a JSON body as is and wraps anything else.
func responseDocument(body []byte) entities.JSON {
	if len(body) == 0 {
		return nil
	}
	if gjson.ValidBytes(body) {
		return entities.JSON(body)
	}
	doc, _ := entities.NewJSON(map[string]string{"body": string(body)})
	return doc
}

