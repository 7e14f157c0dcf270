package generated

import (
	"net/http"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// nopServer — пустая реализация ServerInterface для построения роутера.
type nopServer struct{}

func (nopServer) ListFiles(http.ResponseWriter, *http.Request, ListFilesParams) {}
func (nopServer) UploadFile(http.ResponseWriter, *http.Request) {}
func (nopServer) DeleteFile(http.ResponseWriter, *http.Request, FileId) {}
func (nopServer) GetFile(http.ResponseWriter, *http.Request, FileId) {}
func (nopServer) DownloadFile(http.ResponseWriter, *http.Request, FileId) {}
func (nopServer) HealthLive(http.ResponseWriter, *http.Request) {}
func (nopServer) HealthReady(http.ResponseWriter, *http.Request) {}
func (nopServer) GetMetrics(http.ResponseWriter, *http.Request) {}
func (nopServer) GetOpenAPISpec(http.ResponseWriter, *http.Request) {}

// TestRoutesMatchContract проверяет, что маршруты chi-обвязки совпадают
// с путями и методами openapi.yaml.
func TestRoutesMatchContract(t *testing.T) {
	doc, err := GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger: %v", err)
	}

	var want []string
	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			want = append(want, method+" "+path)
		}
	}

	router := chi.NewRouter()
	HandlerWithOptions(nopServer{}, ChiServerOptions{BaseRouter: router})

	var got []string
	err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+route)
		return nil
	})
	if err != nil {
		t.Fatalf("chi.Walk: %v", err)
	}

	sort.Strings(want)
	sort.Strings(got)
	if strings.Join(want, "\n") != strings.Join(got, "\n") {
		t.Errorf("маршруты расходятся с контрактом\nконтракт:\n%s\nроутер:\n%s",
			strings.Join(want, "\n"), strings.Join(got, "\n"))
	}
}

// TestOperationIDsMatchInterface проверяет, что каждой операции контракта
// соответствует метод ServerInterface с тем же именем.
func TestOperationIDsMatchInterface(t *testing.T) {
	doc, err := GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger: %v", err)
	}

	iface := reflect.TypeOf((*ServerInterface)(nil)).Elem()
	ops := 0
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			ops++
			if op.OperationID == "" {
				t.Errorf("%s %s: не задан operationId", method, path)
				continue
			}
			name := strings.ToUpper(op.OperationID[:1]) + op.OperationID[1:]
			if _, ok := iface.MethodByName(name); !ok {
				t.Errorf("%s %s: в ServerInterface нет метода %s", method, path, name)
			}
		}
	}

	if ops != iface.NumMethod() {
		t.Errorf("операций в контракте %d, методов в ServerInterface %d", ops, iface.NumMethod())
	}
}
