package constants

import (
	"time"

	"github.com/trackify-io/trackify"
)

// Meta Graph API
const (
	DefaultGraphURL   = "https://graph.facebook.com"
	DefaultAPIVersion = "v18.0"
	DefaultTimeout    = 30 * time.Second
)

// Standard event names understood by Meta.
const (
	EventPageView             = "PageView"
	EventViewContent          = "ViewContent"
	EventAddToCart            = "AddToCart"
	EventAddToWishlist        = "AddToWishlist"
	EventInitiateCheckout     = "InitiateCheckout"
	EventAddPaymentInfo       = "AddPaymentInfo"
	EventPurchase             = "Purchase"
	EventLead                 = "Lead"
	EventCompleteRegistration = "CompleteRegistration"
	EventSearch               = "Search"
	EventContact              = "Contact"
	EventSubscribe            = "Subscribe"
	EventStartTrial           = "StartTrial"
)

var StandardEvents = []string{
	EventPageView,
	EventViewContent,
	EventAddToCart,
	EventAddToWishlist,
	EventInitiateCheckout,
	EventAddPaymentInfo,
	EventPurchase,
	EventLead,
	EventCompleteRegistration,
	EventSearch,
	EventContact,
	EventSubscribe,
	EventStartTrial,
}

// Browser cookies set by the Meta pixel.
const (
	CookieFBP   = "_fbp"
	CookieFBC   = "_fbc"
	QueryFBCLID = "fbclid"
)

type Header struct {
	Name  string
	Value string
}

var (
	DefaultResponseHeaders = []Header{
		{Name: "Server", Value: "Trackify/" + trackify.VERSION},
	}
	DefaultDelivererRequestHeaders = []Header{
		{Name: "User-Agent", Value: "Trackify/" + trackify.VERSION},
		{Name: "Content-Type", Value: "application/json"},
	}
)
