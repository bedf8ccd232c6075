package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
	qrSize  int           = 320
)

// viewer is what the status page reads from a session.
type viewer interface {
	View() View
}

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveVersion(cfg *Config, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("hat v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		log.Info().Msgf("SERVE: Version page (%s) to %s in %s",
			byteSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveState(cfg *Config, game viewer, log zerolog.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		body, err := json.Marshal(game.View())
		if err != nil {
			http.Error(w, "state unavailable", http.StatusInternalServerError)
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(append(body, '\n'))
		if err != nil {
			errs <- err

			return
		}

		log.Debug().Msgf("SERVE: State (%s) to %s in %s",
			byteSize(written),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveQR renders the shareable game link as a PNG.
func serveQR(cfg *Config, game viewer, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		link := game.View().GameLink
		if link == "" {
			http.Error(w, "no game link yet", http.StatusNotFound)

			return
		}

		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err = w.Write(png)
		if err != nil {
			errs <- err

			return
		}
	}
}

func newStatusRouter(cfg *Config, game viewer, log zerolog.Logger, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, "An error has occurred. Please try again.\n")
	}

	prefix := strings.TrimSuffix(cfg.prefix, "/")

	mux.GET(prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(prefix+"/qr", serveQR(cfg, game, errs))

	mux.GET(prefix+"/state", serveState(cfg, game, log, errs))

	mux.GET(prefix+"/version", serveVersion(cfg, log, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	return mux
}

// ServeStatus exposes the session's view over HTTP until ctx ends.
func ServeStatus(ctx context.Context, cfg *Config, game viewer, log zerolog.Logger) error {
	errs := make(chan error, 64)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newStatusRouter(cfg, game, log, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				log.Warn().Err(err).Msg("SERVE: Write failed")
			}
		}
	}()

	go func() {
		log.Info().Msgf("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		var err error
		if cfg.scheme() == "https" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("SERVE: Listener failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
