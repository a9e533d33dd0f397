package model

import "sort"

// PixelResult is the outcome of one delivery attempt against one pixel.
type PixelResult struct {
	PixelID        string   `json:"pixel_id"`
	Success        bool     `json:"success"`
	ResponseCode   int      `json:"response_code,omitempty"`
	EventsReceived int      `json:"events_received,omitempty"`
	Messages       []string `json:"messages,omitempty"`
	FBTraceID      string   `json:"fbtrace_id,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Results maps pixel id to its result. Pixels never affect one another.
type Results map[string]*PixelResult

// Failed returns the ids of the pixels that did not accept the events, sorted.
func (r Results) Failed() []string {
	failed := make([]string, 0)
	for id, result := range r {
		if !result.Success {
			failed = append(failed, id)
		}
	}
	sort.Strings(failed)
	return failed
}

func (r Results) AllFailed() bool {
	return len(r) > 0 && len(r.Failed()) == len(r)
}

// DeliveryResult is returned by a send. Pixels is empty when the event was queued.
type DeliveryResult struct {
	EventID string  `json:"event_id"`
	Queued  bool    `json:"queued"`
	Pixels  Results `json:"pixels,omitempty"`
}
