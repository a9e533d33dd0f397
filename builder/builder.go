// Package builder assembles Conversions API events. Personal data is hashed
// by the setters, so a Builder never holds raw PII.
package builder

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/hasher"
	"github.com/trackify-io/trackify/pkg/identity"
	"go.uber.org/zap"
)

// Sender delivers a finished event.
type Sender interface {
	Dispatch(ctx context.Context, event model.Event) (*model.DeliveryResult, error)
}

type Builder struct {
	event    model.Event
	matching modules.AdvancedMatching
}

type Option func(*Builder)

// WithMatching restricts which identity fields the hashing setters accept.
func WithMatching(matching modules.AdvancedMatching) Option {
	return func(b *Builder) {
		b.matching = matching
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.event.EventTime = now().Unix()
	}
}

var allMatching = modules.AdvancedMatching{
	Enabled:    true,
	Email:      true,
	Phone:      true,
	Name:       true,
	Address:    true,
	ExternalID: true,
}

func New(name string, rc *identity.RequestContext, opts ...Option) *Builder {
	b := &Builder{
		event: model.Event{
			EventName:    name,
			EventID:      GenerateEventID(name, ""),
			EventTime:    time.Now().Unix(),
			ActionSource: model.ActionSourceWebsite,
			UserData:     make(model.UserData),
			CustomData:   make(model.CustomData),
		},
		matching: allMatching,
	}
	if rc != nil {
		b.event.EventSourceURL = rc.SourceURL
		b.event.UserData.Set(model.UserClientIP, rc.IP)
		b.event.UserData.Set(model.UserAgent, rc.UserAgent)
		b.event.UserData.Set(model.UserFBP, rc.FBP)
		b.event.UserData.Set(model.UserFBC, rc.FBC)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) WithEventID(id string) *Builder {
	if id != "" {
		b.event.EventID = id
	}
	return b
}

func (b *Builder) WithActionSource(source model.ActionSource) *Builder {
	b.event.ActionSource = source
	return b
}

func (b *Builder) WithSourceURL(url string) *Builder {
	b.event.EventSourceURL = url
	return b
}

func (b *Builder) addHashed(key, value string, allowed bool) *Builder {
	if !b.matching.Enabled || !allowed {
		return b
	}
	if digest := strings.ToLower(strings.TrimSpace(value)); hasher.IsHashed(digest) {
		b.event.UserData.Set(key, digest)
		return b
	}
	b.event.UserData.Set(key, hashers[key](value))
	return b
}

var hashers = map[string]func(string) string{
	model.UserEmail:       hasher.Email,
	model.UserPhone:       hasher.Phone,
	model.UserFirstName:   hasher.Text,
	model.UserLastName:    hasher.Text,
	model.UserCity:        hasher.City,
	model.UserState:       hasher.State,
	model.UserPostcode:    hasher.Postcode,
	model.UserCountry:     hasher.Country,
	model.UserGender:      hasher.Gender,
	model.UserDateOfBirth: hasher.DateOfBirth,
}

func (b *Builder) AddEmail(v string) *Builder {
	return b.addHashed(model.UserEmail, v, b.matching.Email)
}

func (b *Builder) AddPhone(v string) *Builder {
	return b.addHashed(model.UserPhone, v, b.matching.Phone)
}

func (b *Builder) AddFirstName(v string) *Builder {
	return b.addHashed(model.UserFirstName, v, b.matching.Name)
}

func (b *Builder) AddLastName(v string) *Builder {
	return b.addHashed(model.UserLastName, v, b.matching.Name)
}

func (b *Builder) AddCity(v string) *Builder {
	return b.addHashed(model.UserCity, v, b.matching.Address)
}

func (b *Builder) AddState(v string) *Builder {
	return b.addHashed(model.UserState, v, b.matching.Address)
}

func (b *Builder) AddPostcode(v string) *Builder {
	return b.addHashed(model.UserPostcode, v, b.matching.Address)
}

func (b *Builder) AddCountry(v string) *Builder {
	return b.addHashed(model.UserCountry, v, b.matching.Address)
}

func (b *Builder) AddGender(v string) *Builder {
	return b.addHashed(model.UserGender, v, true)
}

func (b *Builder) AddDateOfBirth(v string) *Builder {
	return b.addHashed(model.UserDateOfBirth, v, true)
}

// AddExternalID is sent as is.
func (b *Builder) AddExternalID(v string) *Builder {
	if b.matching.Enabled && b.matching.ExternalID {
		b.event.UserData.Set(model.UserExternalID, strings.TrimSpace(v))
	}
	return b
}

// AddUserData sets an arbitrary user data key, hashing it when the key is
// one of the hashed matching keys.
func (b *Builder) AddUserData(key, value string) *Builder {
	switch key {
	case model.UserEmail:
		return b.AddEmail(value)
	case model.UserPhone:
		return b.AddPhone(value)
	case model.UserFirstName:
		return b.AddFirstName(value)
	case model.UserLastName:
		return b.AddLastName(value)
	case model.UserCity:
		return b.AddCity(value)
	case model.UserState:
		return b.AddState(value)
	case model.UserPostcode:
		return b.AddPostcode(value)
	case model.UserCountry:
		return b.AddCountry(value)
	case model.UserGender:
		return b.AddGender(value)
	case model.UserDateOfBirth:
		return b.AddDateOfBirth(value)
	case model.UserExternalID:
		return b.AddExternalID(value)
	case model.UserClientIP, model.UserAgent, model.UserFBP, model.UserFBC:
		// values taken from the request context win
		if _, ok := b.event.UserData[key]; !ok {
			b.event.UserData.Set(key, value)
		}
		return b
	}
	zap.S().Named("builder").Debugf("dropping unknown user_data key '%s'", key)
	return b
}

// AddCustomer applies every identity field of c.
func (b *Builder) AddCustomer(c *identity.Customer) *Builder {
	if c == nil {
		return b
	}
	return b.AddEmail(c.Email).
		AddPhone(c.Phone).
		AddFirstName(c.FirstName).
		AddLastName(c.LastName).
		AddCity(c.City).
		AddState(c.State).
		AddPostcode(c.Postcode).
		AddCountry(c.Country).
		AddGender(c.Gender).
		AddDateOfBirth(c.DateOfBirth).
		AddExternalID(c.ExternalID)
}

func (b *Builder) AddCustomData(key string, value interface{}) *Builder {
	if value != nil {
		b.event.CustomData[key] = value
	}
	return b
}

func (b *Builder) SetValue(value float64, currency string) *Builder {
	b.event.CustomData["value"] = value
	if currency != "" {
		b.event.CustomData["currency"] = strings.ToUpper(currency)
	}
	return b
}

func (b *Builder) SetContents(ids []string, contentType string) *Builder {
	if len(ids) > 0 {
		b.event.CustomData["content_ids"] = ids
	}
	if contentType != "" {
		b.event.CustomData["content_type"] = contentType
	}
	return b
}

func (b *Builder) SetNumItems(n int) *Builder {
	b.event.CustomData["num_items"] = n
	return b
}

func (b *Builder) SetOrderID(id string) *Builder {
	if id != "" {
		b.event.CustomData["order_id"] = id
	}
	return b
}

func (b *Builder) SetSearchString(s string) *Builder {
	if s != "" {
		b.event.CustomData["search_string"] = s
	}
	return b
}

func (b *Builder) SetPredictedLTV(v float64) *Builder {
	b.event.CustomData["predicted_ltv"] = v
	return b
}

// Event returns a copy of the event built so far.
func (b *Builder) Event() model.Event {
	event := b.event
	event.UserData = maps.Clone(b.event.UserData)
	event.CustomData = maps.Clone(b.event.CustomData)
	return event
}

func (b *Builder) Send(ctx context.Context, sender Sender) (*model.DeliveryResult, error) {
	return sender.Dispatch(ctx, b.Event())
}
