package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"contest-service/internal/domain"
	"contest-service/internal/session"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions *session.Manager) *WSHandler {
	return &WSHandler{
		sessions: sessions,
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

type selectPayload struct {
	Variant string `json:"variant"`
}

type answerPayload struct {
	Index  int `json:"index"`
	Option int `json:"option"`
}

type challengePayload struct {
	ChallengeID string `json:"challengeId"`
	Payload     string `json:"payload"`
}

type challengeResult struct {
	ChallengeID string `json:"challengeId"`
	Accepted    bool   `json:"accepted"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Status: statusFor(err)}}
}

// ServeWS upgrades the request and binds the connection to the participant's
// hosted session for the round. Closing the connection abandons the session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participantId")
	roundRaw := r.URL.Query().Get("round")
	n, err := strconv.Atoi(roundRaw)
	if participantID == "" || err != nil || !domain.Round(n).Valid() {
		http.Error(w, "missing participantId or invalid round", http.StatusBadRequest)
		return
	}
	round := domain.Round(n)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sess, detach, err := h.sessions.Attach(r.Context(), participantID, round)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer detach()

	updates, cancel := sess.Subscribe()
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
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
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
		reply, err := h.dispatch(r.Context(), sess, inbound)
		switch {
		case errors.Is(err, domain.ErrSubmissionInProgress):
			// the racing submission owns the outcome
		case err != nil:
			send <- errorMessage(err)
		case reply != nil:
			send <- *reply
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, sess *session.Session, in inboundMessage) (*outboundMessage[any], error) {
	switch in.Type {
	case "select":
		var p selectPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, errors.New("invalid select payload")
		}
		return nil, sess.Select(ctx, p.Variant)
	case "start":
		return nil, sess.Start(ctx)
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, errors.New("invalid answer payload")
		}
		return nil, sess.Answer(p.Index, p.Option)
	case "next":
		return nil, sess.Next(ctx)
	case "submit":
		return nil, sess.Finish(ctx)
	case "challenge":
		var p challengePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, errors.New("invalid challenge payload")
		}
		accepted, err := sess.SubmitChallenge(ctx, p.ChallengeID, p.Payload)
		if err != nil {
			return nil, err
		}
		return &outboundMessage[any]{Type: "challengeResult", Payload: challengeResult{ChallengeID: p.ChallengeID, Accepted: accepted}}, nil
	case "snapshot":
		return &outboundMessage[any]{Type: "snapshot", Payload: sess.Snapshot()}, nil
	default:
		return nil, errors.New("unsupported message type")
	}
}
