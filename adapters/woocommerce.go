package adapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mitchellh/mapstructure"
	"github.com/trackify-io/trackify/constants"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/identity"
	"github.com/trackify-io/trackify/pkg/types"
	"go.uber.org/zap"
)

const (
	WooCommerce = "woocommerce"

	HeaderWooCommerceTopic = "X-WC-Webhook-Topic"

	trackedOrdersSize = 10000
	trackedOrdersTTL  = 24 * time.Hour
)

var trackedStatuses = map[string]bool{
	"processing": true,
	"completed":  true,
}

func init() {
	Register(WooCommerce, func(log *zap.SugaredLogger) TriggerAdapter {
		return NewWooCommerceAdapter(log)
	})
}

type OrderAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

type OrderItem struct {
	ProductID   string  `json:"product_id"`
	VariationID string  `json:"variation_id"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	Total       float64 `json:"total"`
}

type OrderMeta struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Order is the subset of a WooCommerce order webhook payload the adapter reads.
type Order struct {
	ID                string       `json:"id"`
	Status            string       `json:"status"`
	Currency          string       `json:"currency"`
	Total             float64      `json:"total"`
	CustomerID        string       `json:"customer_id"`
	CustomerIP        string       `json:"customer_ip_address"`
	CustomerUserAgent string       `json:"customer_user_agent"`
	Billing           OrderAddress `json:"billing"`
	LineItems         []OrderItem  `json:"line_items"`
	MetaData          []OrderMeta  `json:"meta_data"`
}

func (o *Order) meta(key string) string {
	for _, m := range o.MetaData {
		if m.Key == key {
			if v, ok := m.Value.(string); ok {
				return v
			}
		}
	}
	return ""
}

// DecodeOrder decodes a webhook body. WooCommerce sends numbers as strings
// and the other way around depending on the field and version.
func DecodeOrder(body []byte) (*Order, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	var order Order
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &order,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	if order.ID == "" || order.ID == "0" {
		return nil, errors.New("order id is required")
	}
	return &order, nil
}

// WooCommerceAdapter tracks a Purchase once per paid order.
type WooCommerceAdapter struct {
	log *zap.SugaredLogger

	mux     sync.Mutex
	tracked *expirable.LRU[string, struct{}]
}

func NewWooCommerceAdapter(log *zap.SugaredLogger) *WooCommerceAdapter {
	return &WooCommerceAdapter{
		log:     log,
		tracked: expirable.NewLRU[string, struct{}](trackedOrdersSize, nil, trackedOrdersTTL),
	}
}

func (a *WooCommerceAdapter) Name() string {
	return WooCommerce
}

func (a *WooCommerceAdapter) Register(r *mux.Router, core Core) {
	r.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		a.handle(w, r, core)
	}).Methods("POST")
}

// claim marks the order as tracked and reports whether it was not already.
func (a *WooCommerceAdapter) claim(orderID string) bool {
	a.mux.Lock()
	defer a.mux.Unlock()
	if a.tracked.Contains(orderID) {
		return false
	}
	a.tracked.Add(orderID, struct{}{})
	return true
}

func (a *WooCommerceAdapter) release(orderID string) {
	a.tracked.Remove(orderID)
}

func ignored(w http.ResponseWriter, reason string) {
	response.JSON(w, http.StatusOK, types.ErrorResponse{Message: "ignored: " + reason})
}

func (a *WooCommerceAdapter) handle(w http.ResponseWriter, r *http.Request, core Core) {
	// the delivery ping sent when a webhook is created is form encoded
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		ignored(w, "not an order payload")
		return
	}

	topic := r.Header.Get(HeaderWooCommerceTopic)
	if topic != "" && topic != "order.created" && topic != "order.updated" {
		ignored(w, "topic "+topic)
		return
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.JSON(w, http.StatusBadRequest, types.ErrorResponse{Message: err.Error()})
		return
	}
	order, err := DecodeOrder(body)
	if err != nil {
		response.JSON(w, http.StatusBadRequest, types.ErrorResponse{Message: "invalid order: " + err.Error()})
		return
	}

	if !trackedStatuses[order.Status] {
		ignored(w, "status "+order.Status)
		return
	}
	if !a.claim(order.ID) {
		ignored(w, fmt.Sprintf("order %s already tracked", order.ID))
		return
	}

	ctx := identity.WithContext(r.Context(), &identity.RequestContext{
		IP:        order.CustomerIP,
		UserAgent: order.CustomerUserAgent,
		FBP:       order.meta(constants.CookieFBP),
		FBC:       order.meta(constants.CookieFBC),
	})
	customData, userData := orderEvent(order)
	result, err := core.SendEvent(ctx, constants.EventPurchase, customData, userData, "purchase_"+order.ID)
	if err != nil {
		a.release(order.ID)
		a.log.Warnf("failed to track order %s: %v", order.ID, err)
	}
	Respond(w, result, err)
}

func orderEvent(order *Order) (model.CustomData, model.UserData) {
	ids := make([]string, 0, len(order.LineItems))
	items := 0
	for _, item := range order.LineItems {
		id := item.ProductID
		if item.VariationID != "" && item.VariationID != "0" {
			id = item.VariationID
		}
		ids = append(ids, id)
		items += item.Quantity
	}

	customData := model.CustomData{
		"value":        order.Total,
		"currency":     order.Currency,
		"content_ids":  ids,
		"content_type": "product",
		"num_items":    items,
		"order_id":     order.ID,
	}

	userData := model.UserData{}
	userData.Set(model.UserEmail, order.Billing.Email)
	userData.Set(model.UserPhone, order.Billing.Phone)
	userData.Set(model.UserFirstName, order.Billing.FirstName)
	userData.Set(model.UserLastName, order.Billing.LastName)
	userData.Set(model.UserCity, order.Billing.City)
	userData.Set(model.UserState, order.Billing.State)
	userData.Set(model.UserPostcode, order.Billing.Postcode)
	userData.Set(model.UserCountry, order.Billing.Country)
	if _, err := strconv.Atoi(order.CustomerID); err == nil && order.CustomerID != "0" {
		userData.Set(model.UserExternalID, order.CustomerID)
	}
	return customData, userData
}
