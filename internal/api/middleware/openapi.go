// openapi.go — проверка запросов по OpenAPI-контракту (kin-openapi).
// Проверяются путь, метод и параметры; тело multipart не читается,
// чтобы не буферизовать загружаемый файл.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/goartstore/intake-module/internal/api/errors"
)

// APIPrefix — префикс, под которым дублируются все маршруты.
const APIPrefix = "/api/v1"

// OpenAPIValidator возвращает middleware проверки запросов по документу doc.
func OpenAPIValidator(doc *openapi3.T) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("создание OpenAPI роутера: %w", err)
	}

	opts := &openapi3filter.Options{
		ExcludeRequestBody: true,
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         false,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := r
			if HasAPIPrefix(r.URL.Path) {
				u := *r.URL
				u.Path = strings.TrimPrefix(r.URL.Path, APIPrefix)
				u.RawPath = ""
				req = r.Clone(r.Context())
				req.URL = &u
			}

			// Нет операции в контракте: ответит роутер (404/405)
			route, pathParams, err := router.FindRoute(req)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				apierrors.ValidationError(w, validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// validationMessage сокращает ошибку kin-openapi до имени параметра и причины.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		reason := reqErr.Reason
		if reason == "" && reqErr.Err != nil {
			reason = reqErr.Err.Error()
		}
		return fmt.Sprintf("Некорректный параметр %s: %s", reqErr.Parameter.Name, reason)
	}
	return err.Error()
}
