package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/igm/sockjs-go/sockjs"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/apiclient"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/auth"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/search"
)

const livePrefix = "/agent/live"

type liveCommand struct {
	Action string `json:"action"`
	Query  string `json:"q"`
	By     string `json:"by"`
}

type liveMessage struct {
	Type     string           `json:"type"`
	State    *search.Snapshot `json:"state,omitempty"`
	Notice   *notice          `json:"notice,omitempty"`
	Location string           `json:"location,omitempty"`
}

// liveConn is the part of a SockJS session the live search uses.
type liveConn interface {
	Request() *http.Request
	Recv() (string, error)
	Send(string) error
	Close(status uint32, reason string) error
}

func (h *Handler) liveSearchHandler() http.Handler {
	return sockjs.NewHandler(livePrefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		h.serveLiveSearch(session)
	})
}

// serveLiveSearch runs one search workflow per connection. The workflow is
// closed when the connection ends so no search fires for a gone client.
func (h *Handler) serveLiveSearch(session liveConn) {
	req := session.Request()
	expired := loginPath + "?" + url.Values{"next": {agentHome}, noticeParam: {expiredCode}}.Encode()

	gate, ok := h.gateForRequest(req)
	if !ok || !gate.IsAuthenticated() {
		sendLive(session, liveMessage{Type: "redirect", Location: expired})
		_ = session.Close(4001, "unauthorized")
		return
	}

	ctx := auth.WithGate(context.WithoutCancel(req.Context()), gate)
	workflow := search.NewWorkflow(h.api, models.SearchByID, search.Config{
		Context:   ctx,
		Debounce:  h.searchDebounce,
		MinLength: h.searchMinLength,
		// Looked up per dispatch so a shared registry can pick up a logout
		// made by another instance.
		Token: func() string {
			return h.registry.Gate(ctx, gate.Scope()).Token()
		},
		OnChange: func(snapshot search.Snapshot) {
			sendLive(session, liveMessage{Type: "state", State: &snapshot})
		},
		OnError: func(err error) {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				sendLive(session, liveMessage{Type: "redirect", Location: expired})
				return
			}
			log.Printf("live search scope=%s error=%v", gate.Scope(), err)
			n := noticeFor(err)
			n.Title = "Search failed"
			sendLive(session, liveMessage{Type: "notice", Notice: &n})
		},
	})
	defer workflow.Close()

	unsubscribe := gate.Subscribe(func(user auth.User, ok bool) {
		if !ok {
			sendLive(session, liveMessage{Type: "redirect", Location: expired})
			_ = session.Close(4001, "logged out")
		}
	})
	defer unsubscribe()

	initial := workflow.Snapshot()
	sendLive(session, liveMessage{Type: "state", State: &initial})

	for {
		raw, err := session.Recv()
		if err != nil {
			return
		}
		var cmd liveCommand
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "query":
			workflow.SetQuery(cmd.Query)
		case "mode":
			if mode, ok := models.ParseSearchMode(cmd.By); ok {
				workflow.SetMode(mode)
			}
		}
	}
}

func sendLive(session liveConn, msg liveMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = session.Send(string(payload))
}
