package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/shopagent/internal/agent"
	"github.com/xenking/shopagent/internal/llm"
)

// maxChatBody bounds the request body size.
const maxChatBody = 256 << 10

// chatRequest is the decoded POST /api/chat body.
type chatRequest struct {
	Message string
	History []llm.Message
}

// Chat runs one agent turn for the authenticated identity.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ownerID := IdentityFromContext(r.Context())
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	req, err := decodeChatRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.chat.Respond(r.Context(), ownerID, req.History, req.Message)
	if err != nil {
		// Full detail stays in server logs; the shopper gets a generic
		// failure regardless of what broke upstream.
		h.log.Error("chat turn failed",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		if errors.Is(err, agent.ErrUpstream) {
			writeError(w, http.StatusBadGateway, "the assistant is temporarily unavailable, please try again")
			return
		}
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("reply", func(e *jx.Encoder) { e.Str(reply) })
	})
	writeJSON(w, http.StatusOK, &e)
}

func decodeChatRequest(body []byte) (*chatRequest, error) {
	var req chatRequest
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "message":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "message")
			}
			req.Message = s
			return nil
		case "history":
			return d.Arr(func(d *jx.Decoder) error {
				msg, err := decodeHistoryMessage(d)
				if err != nil {
					return err
				}
				req.History = append(req.History, msg)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "malformed request body")
	}

	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}
	return &req, nil
}

// decodeHistoryMessage accepts only plain user and assistant turns; tool
// traffic is internal to the orchestrator and not replayable by clients.
func decodeHistoryMessage(d *jx.Decoder) (llm.Message, error) {
	var msg llm.Message
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "role":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "role")
			}
			msg.Role = s
			return nil
		case "content":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "content")
			}
			msg.Content = s
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return msg, err
	}

	if msg.Role != llm.RoleUser && msg.Role != llm.RoleAssistant {
		return msg, errors.Errorf("history role %q not allowed", msg.Role)
	}
	return msg, nil
}
