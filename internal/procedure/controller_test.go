package procedure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gotest.tools/assert"
)

const testRoutes = `
routes:
  - path: /sum
    procedure: sum_n_product
    fields: [x, y, sum, prod]
  - method: post
    path: /login
    procedure: get_user
    fields: [username, password]
  - path: /items
    procedure: list_items
    fields: [max_id]
    objects: true
`

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func newTestRouter(t *testing.T, pool *fakePool, pinger Pinger) *http.ServeMux {
	t.Helper()
	routes, err := ParseRoutes([]byte(testRoutes))
	assert.NilError(t, err)

	router := http.NewServeMux()
	_, err = NewController(router, ControllerDeps{
		Service: newTestService(pool, nil),
		Routes:  routes,
		Logger:  quietLogger(),
		Pinger:  pinger,
	})
	assert.NilError(t, err)
	return router
}

func serve(router http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func TestControllerQueryString(t *testing.T) {
	pool := &fakePool{template: fakeSession{rows: func(Args) RawResult { return rows([]any{int32(42), int32(320)}) }}}
	router := newTestRouter(t, pool, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/sum?x=10&y=32", nil))
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Body.String(), "[42,320]")
	assert.Equal(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Assert(t, rec.Header().Get("X-Request-Id") != "")
	assert.DeepEqual(t, pool.last().gotArgs, Args{int64(10), int64(32)})
}

func TestControllerFormBody(t *testing.T) {
	pool := &fakePool{template: fakeSession{rows: func(args Args) RawResult { return rows([]any{args[0]}) }}}
	router := newTestRouter(t, pool, nil)

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=test_user&password=test_password"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(router, r)

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Body.String(), `"test_user"`)
	assert.DeepEqual(t, pool.last().gotArgs, Args{"test_user", "test_password"})
}

func TestControllerJSONBodyIsExplicit(t *testing.T) {
	pool := &fakePool{template: fakeSession{rows: func(args Args) RawResult { return rows([]any{1, 2}) }}}
	router := newTestRouter(t, pool, nil)

	r := httptest.NewRequest(http.MethodPost, "/login?password=fromquery", strings.NewReader(`{"username": "ema", "extra": [1]}`))
	r.Header.Set("Content-Type", "application/json")
	rec := serve(router, r)

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.DeepEqual(t, pool.last().gotArgs, Args{"ema", nil})
}

func TestControllerJSONBodyNumbers(t *testing.T) {
	pool := &fakePool{template: fakeSession{rows: func(args Args) RawResult { return rows([]any{1, 2}) }}}
	router := newTestRouter(t, pool, nil)

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username": 7, "password": 1.5}`))
	r.Header.Set("Content-Type", "application/json")
	serve(router, r)

	assert.DeepEqual(t, pool.last().gotArgs, Args{int64(7), 1.5})
}

func TestControllerMalformedJSON(t *testing.T) {
	pool := &fakePool{}
	router := newTestRouter(t, pool, nil)

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`[1, 2]`))
	r.Header.Set("Content-Type", "application/json")
	rec := serve(router, r)

	assert.Equal(t, rec.Code, http.StatusBadRequest)
	assert.Equal(t, len(pool.sessions), 0)
}

func TestControllerObjectsRoute(t *testing.T) {
	pool := &fakePool{template: fakeSession{rows: itemsTable}}
	router := newTestRouter(t, pool, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/items?max_id=1", nil))
	assert.Equal(t, rec.Body.String(), `{"id":1,"name":"a"}`)
}

func TestControllerDatabaseError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	pool := &fakePool{template: fakeSession{callErr: pgErr}}
	router := newTestRouter(t, pool, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/sum?x=1", nil))
	assert.Equal(t, rec.Code, http.StatusBadGateway)
	assert.Assert(t, strings.Contains(rec.Body.String(), `"code":"23505"`))
}

func TestControllerUnknownMethod(t *testing.T) {
	router := newTestRouter(t, &fakePool{}, nil)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/sum", nil))
	assert.Equal(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestControllerHealth(t *testing.T) {
	router := newTestRouter(t, &fakePool{}, stubPinger{})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, rec.Code, http.StatusOK)

	router = newTestRouter(t, &fakePool{}, stubPinger{err: errors.New("down")})
	rec = serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)
}

func TestErrorResponse(t *testing.T) {
	status, _ := errorResponse(&SerializationError{Err: errors.New("bad")})
	assert.Equal(t, status, http.StatusInternalServerError)

	status, payload := errorResponse(errors.New("other"))
	assert.Equal(t, status, http.StatusInternalServerError)
	assert.Equal(t, payload["error"], "other")
}
