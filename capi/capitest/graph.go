// Package capitest provides a stand-in for the Meta Graph API.
package capitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

const DefaultReply = `{"events_received":1,"messages":[],"fbtrace_id":"trace"}`

type Call struct {
	PixelID string
	Body    map[string]interface{}
}

// GraphAPI records every events call. Replies maps a pixel id to the status
// code and body it answers with, other pixels get a 200 with DefaultReply.
type GraphAPI struct {
	*httptest.Server
	mux     sync.Mutex
	calls   []Call
	replies map[string][2]string
}

// Cleaner is satisfied by testing.TB and GinkgoT().
type Cleaner interface {
	Cleanup(func())
}

func NewGraphAPI(t Cleaner, replies map[string][2]string) *GraphAPI {
	api := &GraphAPI{replies: replies}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func (api *GraphAPI) serve(w http.ResponseWriter, r *http.Request) {
	// /v18.0/{pixel_id}/events
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "events" {
		w.WriteHeader(404)
		return
	}
	pixelID := parts[1]
	b, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(b, &body)

	api.mux.Lock()
	api.calls = append(api.calls, Call{PixelID: pixelID, Body: body})
	reply, ok := api.replies[pixelID]
	api.mux.Unlock()

	if !ok {
		reply = [2]string{"200", DefaultReply}
	}
	code, err := strconv.Atoi(reply[0])
	if err != nil {
		code = 500
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(reply[1]))
}

// Reply changes the answer for pixelID.
func (api *GraphAPI) Reply(pixelID string, code int, body string) {
	api.mux.Lock()
	defer api.mux.Unlock()
	if api.replies == nil {
		api.replies = make(map[string][2]string)
	}
	api.replies[pixelID] = [2]string{strconv.Itoa(code), body}
}

func (api *GraphAPI) Calls() []Call {
	api.mux.Lock()
	defer api.mux.Unlock()
	return append([]Call(nil), api.calls...)
}

func (api *GraphAPI) Reset() {
	api.mux.Lock()
	defer api.mux.Unlock()
	api.calls = nil
}
