package tui

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"beelogical.com/chat-portal/internal/auth"
)

const callbackPage = `<!doctype html>
<html><body style="background:#1a1a1a;color:#facc15;font-family:sans-serif;text-align:center;padding-top:4rem">
<h1>Logged in to Bee Logical</h1><p>You can close this tab and return to the terminal.</p>
</body></html>`

// listenForCallback serves the return redirect on addr and yields the first
// identity it receives.
func listenForCallback(ctx context.Context, addr string) (auth.Identity, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return auth.Identity{}, errors.Wrapf(err, "listen on %s", addr)
	}
	return serveCallback(ctx, ln)
}

func serveCallback(ctx context.Context, ln net.Listener) (auth.Identity, error) {
	got := make(chan auth.Identity, 1)

	r := chi.NewRouter()
	r.Get("/home", func(w http.ResponseWriter, r *http.Request) {
		select {
		case got <- auth.FromQuery(r.URL.Query()):
		default:
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, callbackPage)
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("callback listener stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case id := <-got:
		return id, nil
	case <-ctx.Done():
		return auth.Identity{}, ctx.Err()
	}
}
