package adapters

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-playground/form"
	"github.com/gorilla/mux"
	"github.com/mitchellh/mapstructure"
	"github.com/trackify-io/trackify/constants"
	"github.com/trackify-io/trackify/model"
	"github.com/trackify-io/trackify/pkg/http/response"
	"github.com/trackify-io/trackify/pkg/identity"
	"github.com/trackify-io/trackify/pkg/types"
	"go.uber.org/zap"
)

const Forms = "forms"

func init() {
	Register(Forms, func(log *zap.SugaredLogger) TriggerAdapter {
		return NewFormsAdapter(log)
	})
}

// Submission is a generic contact or lead form post.
type Submission struct {
	EventID   string `json:"event_id" form:"event_id"`
	FormID    string `json:"form_id" form:"form_id"`
	FormName  string `json:"form_name" form:"form_name"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	SourceURL string `json:"source_url" form:"source_url"`
}

// FormsAdapter tracks a Lead for every submission it receives.
type FormsAdapter struct {
	log     *zap.SugaredLogger
	decoder *form.Decoder
}

func NewFormsAdapter(log *zap.SugaredLogger) *FormsAdapter {
	return &FormsAdapter{
		log:     log,
		decoder: form.NewDecoder(),
	}
}

func (a *FormsAdapter) Name() string {
	return Forms
}

func (a *FormsAdapter) Register(r *mux.Router, core Core) {
	r.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		a.handle(w, r, core)
	}).Methods("POST")
}

func (a *FormsAdapter) decode(r *http.Request) (*Submission, error) {
	var submission Submission
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           &submission,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, err
		}
		return &submission, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	if err := a.decoder.Decode(&submission, r.PostForm); err != nil {
		return nil, err
	}
	return &submission, nil
}

func (a *FormsAdapter) handle(w http.ResponseWriter, r *http.Request, core Core) {
	submission, err := a.decode(r)
	if err != nil {
		response.JSON(w, http.StatusBadRequest, types.ErrorResponse{Message: "invalid submission: " + err.Error()})
		return
	}

	if rc, ok := identity.FromContext(r.Context()); ok {
		sourceURL := submission.SourceURL
		if sourceURL == "" {
			sourceURL = r.Referer()
		}
		rc.SetSourceURL(sourceURL)
	}

	customData := model.CustomData{}
	if submission.FormName != "" {
		customData["content_name"] = submission.FormName
	}
	if submission.FormID != "" {
		customData["form_id"] = submission.FormID
	}

	userData := model.UserData{}
	userData.Set(model.UserEmail, submission.Email)
	userData.Set(model.UserPhone, submission.Phone)
	userData.Set(model.UserFirstName, submission.FirstName)
	userData.Set(model.UserLastName, submission.LastName)

	eventID := SharedEventID(core, submission.EventID, "lead", submission.FormID)
	result, err := core.SendEvent(r.Context(), constants.EventLead, customData, userData, eventID)
	if err != nil {
		a.log.Warnf("failed to track form %s submission: %v", submission.FormID, err)
	}
	Respond(w, result, err)
}
