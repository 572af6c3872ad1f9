package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"skill-assessment-service/internal/app"
)

type WSHandler struct {
	service  *app.AssessmentService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AssessmentService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type editPayload struct {
	Text string `json:"text"`
}

type fragmentPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one assessment
// session for the lifetime of the connection. The client streams intents
// and capture fragments in; the handler streams session snapshots out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	skillName := r.URL.Query().Get("skill")
	skillID := r.URL.Query().Get("skillId")
	captureSupported := r.URL.Query().Get("capture") == "1"
	if skillName == "" {
		http.Error(w, "missing skill", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.Start(r.Context(), skillName, skillID, captureSupported)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Close(session.ID())

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handleIntent(session, inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-closeSignals:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleIntent(session *app.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "startCapture":
		return session.StartCapture()
	case "stopCapture":
		return session.StopCapture()
	case "resetTranscript":
		return session.ResetTranscript()
	case "submit":
		return session.Submit()
	case "edit":
		var payload editPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.Edit(payload.Text)
	case "fragment":
		var payload fragmentPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.Fragment(payload.Text, payload.Final)
	case "captureEnded":
		return session.EndCapture()
	default:
		return errUnsupportedType
	}
}

var (
	errInvalidPayload  = &wsError{"invalid payload"}
	errUnsupportedType = &wsError{"unsupported message type"}
)

type wsError struct{ msg string }

func (e *wsError) Error() string { return e.msg }
