package api

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"beelogical.com/chat-portal/internal/auth"
	"beelogical.com/chat-portal/internal/core"
	"beelogical.com/chat-portal/internal/screens"
	"beelogical.com/chat-portal/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

type contextKey string

const screenKey contextKey = "screen"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type APIHandler struct {
	registry *screens.Registry
	loginURL string
	pages    *template.Template
}

func NewAPIHandler(registry *screens.Registry, loginURL string) (*APIHandler, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse page templates")
	}
	return &APIHandler{
		registry: registry,
		loginURL: loginURL,
		pages:    pages,
	}, nil
}

type entryPage struct {
	LoginURL string
}

type sessionPage struct {
	ScreenID string
	Identity auth.Identity
	State    store.Snapshot
	Links    []core.Link
}

func (h *APIHandler) EntryHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "entry.html", entryPage{LoginURL: h.loginURL})
}

func (h *APIHandler) LoginRedirectHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.loginURL, http.StatusFound)
}

// SessionHandler mounts a new screen for every load of /home, so a reload
// starts from an empty transcript with identity re-read from the URL.
func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromQuery(r.URL.Query())
	screen := h.registry.Mount(identity)
	h.renderSession(w, r, screen)
}

// ScreenCtx resolves {screenID} and stores the screen in the request context.
func (h *APIHandler) ScreenCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		screen, err := h.registry.Get(chi.URLParam(r, "screenID"))
		if err != nil {
			writeError(w, http.StatusNotFound, "SCREEN_NOT_FOUND", "Screen not found. Reload the page to start a new session.", r)
			return
		}
		ctx := context.WithValue(r.Context(), screenKey, screen)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func screenFrom(ctx context.Context) *screens.Screen {
	screen, _ := ctx.Value(screenKey).(*screens.Screen)
	return screen
}

// PageHandler renders the Session screen of an already mounted screen.
func (h *APIHandler) PageHandler(w http.ResponseWriter, r *http.Request) {
	h.renderSession(w, r, screenFrom(r.Context()))
}

func (h *APIHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, screenFrom(r.Context()).State())
}

func (h *APIHandler) DraftHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid form body", r)
		return
	}
	screen := screenFrom(r.Context())
	screen.Conversation().SetDraft(r.PostForm.Get("query"))
	w.WriteHeader(http.StatusNoContent)
}

// AskHandler runs one exchange for the form's query (or the stored draft
// when the form has none) to completion. The backend call is detached from
// the request so that a client going away does not cancel it.
func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid form body", r)
		return
	}
	screen := screenFrom(r.Context())
	ctx := context.WithoutCancel(r.Context())

	var err error
	if _, ok := r.PostForm["query"]; ok {
		err = screen.Session.SubmitText(ctx, r.PostForm.Get("query"))
	} else {
		err = screen.Session.Submit(ctx)
	}
	switch {
	case errors.Is(err, core.ErrRequestInFlight):
		h.respondInFlight(w, r)
		return
	case err != nil && !errors.Is(err, core.ErrEmptyQuery):
		log.Error().Err(err).Str("screen_id", screen.ID).Msg("submit failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to submit query", r)
		return
	}

	if wantsHTML(r) {
		h.renderSession(w, r, screen)
		return
	}
	writeJSON(w, http.StatusOK, screen.State())
}

func (h *APIHandler) respondInFlight(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusConflict, "REQUEST_IN_FLIGHT", "A question is already being answered", r)
}

type clientFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WebSocketHandler streams screen state to the page and accepts draft and
// submit frames. Closing the last connection unmounts the screen.
func (h *APIHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	screen := screenFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("screen_id", screen.ID).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(screens.MaxFrameSize)
	h.registry.Attach(screen, conn)
	defer h.registry.Detach(screen, conn)

	if data, err := json.Marshal(screen.State()); err == nil {
		if err := screen.Pool().SendToOne(conn, data); err != nil {
			return
		}
	}

	callCtx := context.WithoutCancel(r.Context())
	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("screen_id", screen.ID).Msg("websocket closed")
			}
			return
		}

		switch frame.Type {
		case "draft":
			screen.Conversation().SetDraft(frame.Text)
		case "submit":
			h.submitFrame(callCtx, screen, conn, frame)
		default:
			h.sendError(screen, conn, "UNKNOWN_FRAME", "Unknown frame type "+frame.Type)
		}
	}
}

func (h *APIHandler) submitFrame(ctx context.Context, screen *screens.Screen, conn *websocket.Conn, frame clientFrame) {
	ex, err := screen.Session.DispatchText(frame.Text)
	switch {
	case errors.Is(err, core.ErrEmptyQuery):
		return
	case errors.Is(err, core.ErrRequestInFlight):
		h.sendError(screen, conn, "REQUEST_IN_FLIGHT", "A question is already being answered")
		return
	case err != nil:
		h.sendError(screen, conn, "INTERNAL", "Failed to submit query")
		return
	}

	go ex.Settle(ex.Call(ctx))
}

func (h *APIHandler) sendError(screen *screens.Screen, conn *websocket.Conn, code, message string) {
	data, err := json.Marshal(errorFrame{Type: "error", Code: code, Message: message})
	if err != nil {
		return
	}
	if err := screen.Pool().SendToOne(conn, data); err != nil {
		log.Debug().Err(err).Str("screen_id", screen.ID).Msg("failed to send error frame")
	}
}

func (h *APIHandler) renderSession(w http.ResponseWriter, r *http.Request, screen *screens.Screen) {
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, r, "session.html", sessionPage{
		ScreenID: screen.ID,
		Identity: screen.Identity,
		State:    screen.Conversation().Snapshot(),
		Links:    screen.Links,
	})
}

func (h *APIHandler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
