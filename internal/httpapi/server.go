package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/j0lvera/echobot/internal/ai"
	"github.com/j0lvera/echobot/internal/bot"
	"github.com/j0lvera/echobot/internal/memory"
	"github.com/j0lvera/echobot/internal/observability"
)

// Handler is the part of the bot the HTTP channel drives.
type Handler interface {
	OnMessage(ctx context.Context, ev bot.MessageEvent) (bot.Reply, error)
	OnMembersAdded(ctx context.Context, ev bot.MembersAddedEvent) []bot.Reply
}

type Server struct {
	botID   string
	handler Handler
	log     zerolog.Logger
}

func NewServer(botID string, handler Handler, log zerolog.Logger) *Server {
	return &Server{
		botID:   botID,
		handler: handler,
		log:     log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())
	r.Post("/api/messages", s.handleMessages)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var in Activity
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_activity", err.Error())
		return
	}
	if strings.TrimSpace(in.Conversation.ID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_activity", "conversation.id is required")
		return
	}

	var replies []bot.Reply
	switch in.Type {
	case ActivityMessage:
		reply, err := s.handler.OnMessage(r.Context(), toMessageEvent(in))
		if err != nil {
			s.respondTurnError(w, in, err)
			return
		}
		replies = append(replies, reply)

	case ActivityConversationUpdate:
		replies = s.handler.OnMembersAdded(r.Context(), toMembersAddedEvent(in, s.botID))

	default:
		s.log.Debug().Str("type", in.Type).Msg("ignoring activity")
	}

	out := activitiesResponse{Activities: make([]Activity, 0, len(replies))}
	for _, reply := range replies {
		out.Activities = append(out.Activities, replyActivity(in, reply))
	}
	respondJSON(w, http.StatusOK, out)
}

// respondTurnError is the channel's default error surface for a failed turn.
func (s *Server) respondTurnError(w http.ResponseWriter, in Activity, err error) {
	s.log.Error().Err(err).Str("conversation_id", in.Conversation.ID).Msg("turn failed")

	var storageErr *memory.StorageError
	var serviceErr *ai.ServiceError
	switch {
	case errors.As(err, &storageErr):
		respondError(w, http.StatusInternalServerError, "storage_failed", "conversation memory unavailable")
	case errors.As(err, &serviceErr):
		respondError(w, http.StatusBadGateway, "completion_failed", "completion service "+string(serviceErr.Kind))
	default:
		respondError(w, http.StatusInternalServerError, "turn_failed", "the bot encountered an error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
