package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/propdeal/propdeal-server-go/internal/game"
	"github.com/rs/cors"
	qr "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const qrSize = 256

// Handler returns the HTTP routes wrapped in CORS.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /api/games", h.handleListGames)
	mux.HandleFunc("GET /api/games/{id}", h.handleGetGame)
	mux.HandleFunc("GET /api/games/{id}/qr", h.handleQR)
	mux.HandleFunc("GET /api/results", h.handleResults)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}

// ServeWS upgrades the request and attaches a client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(h.opts.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn)
	if !h.registerClient(client) {
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorPayload{Message: err.Error()})
}

func (h *Hub) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"games": h.manager.List()})
}

func (h *Hub) handleGetGame(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	data, err := game.MarshalSnapshot(session.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// joinURL is the link a second player opens to take a seat.
func (h *Hub) joinURL(r *http.Request, gameID string) string {
	base := strings.TrimSuffix(h.opts.PublicURL, "/")
	if base == "" {
		base = "http://" + r.Host
	}
	return fmt.Sprintf("%s/?game=%s", base, url.QueryEscape(gameID))
}

// handleQR renders the join link of a game as a PNG.
func (h *Hub) handleQR(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if _, err := h.manager.Get(gameID); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	png, err := qr.Encode(h.joinURL(r, gameID), qr.Medium, qrSize)
	if err != nil {
		h.logger.Error("qr generation failed", zap.String("game_id", gameID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("qr generation failed"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

type resultView struct {
	GameID     string   `json:"gameId"`
	Players    []string `json:"players"`
	WinnerSeat int      `json:"winnerSeat"`
	Winner     string   `json:"winner,omitempty"`
	Turns      int      `json:"turns"`
	FinishedAt string   `json:"finishedAt"`
}

func (h *Hub) handleResults(w http.ResponseWriter, r *http.Request) {
	if h.opts.Results == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("results are not stored"))
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad limit %q", v))
			return
		}
		limit = n
	}

	results, err := h.opts.Results.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("failed to list results"))
		return
	}
	views := make([]resultView, 0, len(results))
	for _, res := range results {
		views = append(views, resultView{
			GameID:     res.GameID,
			Players:    res.Players,
			WinnerSeat: res.WinnerSeat,
			Winner:     res.Winner,
			Turns:      res.Turns,
			FinishedAt: res.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]resultView{"results": views})
}
