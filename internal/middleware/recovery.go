package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"gestion-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Recovery] PANIC on %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				utils.Error(w, http.StatusInternalServerError, "Error del servidor. Intente más tarde.")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
