package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/observo/apps/api/echo"
	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/journal"
	"github.com/trezcool/observo/core/lookup"
	"github.com/trezcool/observo/core/session"
	"github.com/trezcool/observo/core/user"
	"github.com/trezcool/observo/services/backend"
	"github.com/trezcool/observo/storage/database/inmem"
)

const testSecretKey = "test-secret"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}

	ada  = core.Actor{ID: "a1", Name: "Ada", Email: "ada@test.test", District: "d1", Roles: []string{user.RoleDistrictAdmin}}
	alan = core.Actor{ID: "a2", Name: "Alan", Email: "alan@test.test", District: "d1", Roles: []string{user.RoleTeacher}}
)

// fakeBackend serves the lookup and create endpoints of the backend API.
type fakeBackend struct {
	mu        sync.Mutex
	posts     map[string][]map[string]interface{}
	queries   map[string][]string // raw query strings, by kind
	failPosts string              // message of the failed envelope returned on create, when set
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kind := strings.Trim(r.URL.Path, "/")
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success": false, "message": "no token"}`)
		return
	}

	switch r.Method {
	case http.MethodGet:
		b.queries[kind] = append(b.queries[kind], r.URL.RawQuery)
		records := map[string]string{
			"schools":    `[{"_id": "s2", "name": "Roosevelt"}, {"_id": "s1", "name": "Lincoln High"}]`,
			"classrooms": `[{"_id": "c1", "name": "Room 1"}, {"_id": "c2", "title": "Lab"}]`,
			"users":      `[{"_id": "u1", "first_name": "Grace", "last_name": "Hopper"}, {"_id": "u2", "email": "linus@test.test"}]`,
		}[kind]
		if records == "" {
			records = "[]"
		}
		_, _ = io.WriteString(w, `{"success": true, "data": {"`+kind+`": `+records+`, "total": 2, "page": 1, "pages": 1}}`)
	case http.MethodPost:
		if b.failPosts != "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"success": false, "message": "`+b.failPosts+`"}`)
			return
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.posts[kind] = append(b.posts[kind], body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success": true, "data": {"_id": "`+kind+`-1"}}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *fakeBackend) failCreates(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPosts = msg
}

type testEnv struct {
	app     Server
	backend *fakeBackend
	journal journal.Repository
	store   *flow.Store
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	fb := &fakeBackend{posts: make(map[string][]map[string]interface{}), queries: make(map[string][]string)}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	// validation
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// backend & journal
	schemas, err := backend.LoadSchemas()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	client := backend.NewClient(core.BackendConfig{BaseURL: srv.URL, Timeout: time.Second}, schemas, core.NopLogger{})
	repo := inmemdb.NewSubmissionRepository()

	// flows
	deps := flow.Deps{
		Sink:       journal.NewRecordingSink(client, repo, core.NopLogger{}),
		Logger:     core.NopLogger{},
		Translator: translator,
	}
	store := flow.NewStore(time.Hour)
	registry := flow.NewRegistry(store, session.NewFactory(validate, deps), user.NewFactory(validate, deps))

	app := NewServer(
		&Options{AppName: "Observo", SecretKey: testSecretKey, TestMode: true, DisableReqLogs: true},
		nil, /* shutdown */
		&Deps{
			Logger:     core.NopLogger{},
			Translator: translator,
			Registry:   registry,
			Lookups:    lookup.NewProvider(client, core.NopLogger{}, 100),
			Journal:    repo,
		},
	)
	return &testEnv{app: app, backend: fb, journal: repo, store: store}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, actor core.Actor) string {
	t.Helper()
	token, err := GenerateToken(NewClaims(actor, "Observo", time.Hour), testSecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// do serves a request as `actor` and decodes the JSON response into `out` (when not nil).
func (env *testEnv) do(t *testing.T, actor core.Actor, method, path string, body string, out interface{}) int {
	t.Helper()
	var data []byte
	if body != "" {
		data = []byte(body)
	}
	req, rec := newAuthRequest(method, path, getToken(t, actor), data)
	env.app.ServeHTTP(rec, req)
	if out != nil {
		// fields omitted from the response must not keep values of a previous decode
		v := reflect.ValueOf(out).Elem()
		v.Set(reflect.Zero(v.Type()))
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
