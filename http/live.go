package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"salaryestimator/profile"
)

const (
	liveReadLimit = 4096
	liveIdle      = 5 * time.Minute
	liveWriteWait = 10 * time.Second
)

// handleLiveEstimate reruns the form on every message. Each message is a
// (possibly partial) selection merged over the previous one; each reply is the
// re-derived form and its estimate.
func (h *handlers) handleLiveEstimate(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.deps.Logger.Debug("live estimate upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(liveReadLimit)
	logger := h.deps.Logger.With(zap.String("request_id", GetRequestID(r.Context())))
	ctx := r.Context()

	current := profile.Defaults()
	for {
		conn.SetReadDeadline(time.Now().Add(liveIdle))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("live estimate connection closed", zap.Error(err))
			}
			return
		}

		var reply liveReply
		var input map[string]interface{}
		if err := json.Unmarshal(payload, &input); err != nil {
			reply = liveReply{Form: deriveForm(profile.Build(current)), Error: &errorBody{Error: "invalid JSON: " + err.Error()}}
		} else if sel, err := profile.Decode(current, dropBlank(input)); err != nil {
			reply = liveReply{Form: deriveForm(profile.Build(current)), Error: &errorBody{Error: err.Error()}}
		} else {
			rec := profile.Build(sel)
			current = rec.Selection()
			reply = h.liveEstimate(r, rec)
		}

		conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Debug("live estimate write failed", zap.Error(err))
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (h *handlers) liveEstimate(r *http.Request, rec profile.Record) liveReply {
	reply := liveReply{Form: deriveForm(rec), Input: &rec}
	est, err := h.estimate(r.Context(), sourceLive, rec)
	if err != nil {
		_, body := failure(err)
		reply.Error = &body
		return reply
	}
	reply.Estimate = &est
	reply.Formatted = est.Format()
	return reply
}
