package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Recover ловит панику обработчика: пишет в лог запрос и стек, клиенту
// отдаёт JSON 500, если ответ ещё не начат.
func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{w: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error().
					Str("rid", GetRequestID(r)).
					Str("user", r.Header.Get(UserHeader)).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bool("headers_sent", rw.status != 0).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic")
				if rw.status != 0 {
					return
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal"}`))
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
