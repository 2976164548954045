package admin

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/udisondev/hotzone/internal/model"
)

// Request is the body accepted by HTTPHandler.
type Request struct {
	CitizenID   model.CitizenID `json:"citizen_id"`
	Operator    string          `json:"operator"`
	AccessLevel int32           `json:"access_level"`
	// Text is the chat line including its / or // prefix.
	Text string `json:"text"`
}

// Response is the HTTPHandler reply.
type Response struct {
	Handled bool   `json:"handled"`
	Reply   string `json:"reply,omitempty"`
}

// HTTPHandler exposes command dispatch to the host over loopback HTTP.
// The host is trusted to report the operator's access level.
func (h *Handler) HTTPHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		var req Request
		if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}

		op := Operator{CitizenID: req.CitizenID, Name: req.Operator, AccessLevel: req.AccessLevel}
		var resp Response
		switch {
		case strings.HasPrefix(req.Text, "//"):
			resp.Reply, resp.Handled = h.HandleAdminCommand(r.Context(), op, req.Text[2:])
		case strings.HasPrefix(req.Text, "/"):
			resp.Reply, resp.Handled = h.HandleUserCommand(r.Context(), op, req.Text[1:])
		default:
			http.Error(rw, "not a command", http.StatusBadRequest)
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
