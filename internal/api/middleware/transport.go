// transport.go — CORS для браузерного фронтенда и gzip JSON-ответов.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
)

// CORS возвращает middleware, разрешающий запросы с указанных origins.
// Authorization разрешён: владелец передаётся Bearer-токеном.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Range", "If-None-Match"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length", "ETag"},
		MaxAge:         600,
	})
	return c.Handler
}

// Gzip возвращает middleware, сжимающий только JSON-ответы.
// Содержимое файлов отдаётся как есть, чтобы не ломать Range.
func Gzip() (func(http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.ContentTypes([]string{"application/json"}))
	if err != nil {
		return nil, fmt.Errorf("создание gzip middleware: %w", err)
	}
	return func(next http.Handler) http.Handler {
		return wrap(next)
	}, nil
}
