package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/authorization"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testBusinessID = snowflake.ID(500)

var testUsers = map[string]*authdomain.User{
	"owner-token":   {ID: 1, IsActive: true},
	"cashier-token": {ID: 2, IsActive: true},
	"outsider":      {ID: 3, IsActive: true},
	"staff-token":   {ID: 4, IsActive: true, IsStaff: true},
}

type fakeAuthService struct {
	authdomain.Service
}

func (fakeAuthService) Authenticate(ctx context.Context, token string) (*authdomain.User, error) {
	if u, ok := testUsers[token]; ok {
		return u, nil
	}
	return nil, ErrUnauthorized
}

type fakeBusinessService struct {
	businessdomain.Service
}

func (fakeBusinessService) ResolveMembership(ctx context.Context, businessID, userID snowflake.ID) (*bizcontext.Membership, error) {
	if businessID != testBusinessID {
		return nil, nil
	}
	switch userID {
	case 1:
		return &bizcontext.Membership{MemberID: 11, BusinessID: businessID, Role: authorization.RoleOwner, IsActive: true}, nil
	case 2:
		return &bizcontext.Membership{MemberID: 12, BusinessID: businessID, Role: authorization.RoleCashier, IsActive: true}, nil
	}
	return nil, nil
}

type widget struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
	Note string       `json:"note"`
}

// fakeStore keeps widgets in memory and records the options passed to List.
type fakeStore struct {
	mu       sync.Mutex
	nextID   snowflake.ID
	items    map[snowflake.ID]*widget
	lastOpts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, items: map[snowflake.ID]*widget{}}
}

func (f *fakeStore) New() *widget { return &widget{} }

func (f *fakeStore) Build(body map[string]json.RawMessage) (*widget, error) {
	w := f.New()
	if raw, ok := body["name"]; ok {
		if err := json.Unmarshal(raw, &w.Name); err != nil {
			return nil, apperror.Validation("name", "invalid_name", "invalid value")
		}
	}
	return w, nil
}

func (f *fakeStore) List(ctx context.Context, page pagination.Pagination, opts ...option.QueryOption) ([]*widget, *pagination.PageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = len(opts)
	out := make([]*widget, 0, len(f.items))
	for _, w := range f.items {
		out = append(out, w)
	}
	return out, &pagination.PageInfo{}, nil
}

func (f *fakeStore) Get(ctx context.Context, id snowflake.ID) (*widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return w, nil
}

func (f *fakeStore) Create(ctx context.Context, item *widget) (*widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.Name == "" {
		return nil, apperror.Validation("name", "required", "name is required")
	}
	for _, w := range f.items {
		if w.Name == item.Name {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	item.ID = f.nextID
	f.nextID++
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeStore) Update(ctx context.Context, id snowflake.ID, patch map[string]json.RawMessage) (*widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if raw, ok := patch["name"]; ok {
		_ = json.Unmarshal(raw, &w.Name)
	}
	return w, nil
}

func (f *fakeStore) Replace(ctx context.Context, id snowflake.ID, body map[string]json.RawMessage) (*widget, error) {
	next, err := f.Build(body)
	if err != nil {
		return nil, err
	}
	if raw, ok := body["note"]; ok {
		_ = json.Unmarshal(raw, &next.Note)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	next.ID = id
	f.items[id] = next
	return next, nil
}

func (f *fakeStore) Delete(ctx context.Context, id snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeIngester struct {
	event *paymentdomain.WebhookEvent
	err   error
	got   []byte
}

func (f *fakeIngester) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*paymentdomain.WebhookEvent, error) {
	f.got = payload
	return f.event, f.err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	return &Server{
		engine:      engine,
		log:         zap.NewNop(),
		authsvc:     fakeAuthService{},
		authzSvc:    authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		businessSvc: fakeBusinessService{},
	}
}

func mountWidgets(s *Server, store *fakeStore) {
	biz := s.engine.Group("/api/v1/businesses/:business_id", s.AuthRequired(), s.BusinessContext())
	resource[widget]{
		path:    "widgets",
		object:  authorization.ResourceProduct,
		store:   store,
		filters: []filter{textFilter("name", "name"), dateRange("created_at")},
	}.mount(s, biz)
	s.registerFallback()
}

func do(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.engine.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out.Error
}

func widgetsPath(suffix string) string {
	return fmt.Sprintf("/api/v1/businesses/%d/widgets%s", testBusinessID, suffix)
}

func TestMapError(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
	}
	fieldErr := validator.New().Struct(input{})

	cases := []struct {
		name   string
		err    error
		status int
		kind   string
		code   string
	}{
		{"validation", apperror.Validation("sku", "invalid_sku", "bad"), http.StatusBadRequest, "validation_error", "invalid_sku"},
		{"not found", apperror.NotFound("order_not_found"), http.StatusNotFound, "not_found", "order_not_found"},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden", ""},
		{"conflict", apperror.Conflict("insufficient_stock", "not enough"), http.StatusConflict, "conflict", "insufficient_stock"},
		{"unauthenticated", ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "unauthorized"},
		{"rate limited", apperror.RateLimited("too_many_attempts"), http.StatusTooManyRequests, "rate_limited", "too_many_attempts"},
		{"field errors", fieldErr, http.StatusBadRequest, "validation_error", ""},
		{"wrapped missing row", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound, "not_found", "not_found"},
		{"duplicate", gorm.ErrDuplicatedKey, http.StatusConflict, "conflict", "duplicate"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
			if tc.code != "" {
				assert.Equal(t, tc.code, payload.Code)
			}
		})
	}
}

func TestFieldErrorsListEachField(t *testing.T) {
	type input struct {
		Name  string `validate:"required"`
		Email string `validate:"required,email"`
	}
	_, payload := mapError(validator.New().Struct(input{Email: "nope"}))
	require.Len(t, payload.Errors, 2)
	assert.Equal(t, "invalid_Name", payload.Errors[0].Code)
	assert.Equal(t, "Email", payload.Errors[1].Field)
}

func TestInternalErrorsHideDetails(t *testing.T) {
	_, payload := mapError(errors.New("pq: connection refused to 10.0.0.3"))
	assert.Equal(t, "internal server error", payload.Message)
	assert.Empty(t, payload.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	mountWidgets(s, newFakeStore())

	resp := do(s, http.MethodGet, widgetsPath(""), "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", decodeError(t, resp).Type)

	resp = do(s, http.MethodGet, widgetsPath(""), "forged", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestBusinessContextHidesForeignBusinesses(t *testing.T) {
	s := newTestServer(t)
	mountWidgets(s, newFakeStore())

	resp := do(s, http.MethodGet, widgetsPath(""), "outsider", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(s, http.MethodGet, "/api/v1/businesses/abc/widgets", "owner-token", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(s, http.MethodGet, widgetsPath(""), "staff-token", "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestResourceCRUD(t *testing.T) {
	s := newTestServer(t)
	store := newFakeStore()
	mountWidgets(s, store)

	resp := do(s, http.MethodPost, widgetsPath(""), "owner-token", `{"name":"Latte"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	var created struct {
		Data widget `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "Latte", created.Data.Name)

	item := fmt.Sprintf("/%d", created.Data.ID)
	resp = do(s, http.MethodGet, widgetsPath(item), "cashier-token", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = do(s, http.MethodPatch, widgetsPath(item), "owner-token", `{"name":"Flat White"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Flat White", store.items[created.Data.ID].Name)

	resp = do(s, http.MethodPost, widgetsPath(""), "owner-token", `{"name":"Flat White"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "duplicate", decodeError(t, resp).Code)

	resp = do(s, http.MethodPost, widgetsPath(""), "owner-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "name", decodeError(t, resp).Errors[0].Field)

	resp = do(s, http.MethodDelete, widgetsPath(item), "owner-token", "")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = do(s, http.MethodGet, widgetsPath(item), "owner-token", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestResourcePutReplacesRecord(t *testing.T) {
	s := newTestServer(t)
	store := newFakeStore()
	mountWidgets(s, store)

	created, err := store.Create(context.Background(), &widget{Name: "Latte", Note: "oat milk"})
	require.NoError(t, err)
	item := fmt.Sprintf("/%d", created.ID)

	resp := do(s, http.MethodPut, widgetsPath(item), "cashier-token", `{"name":"Mocha"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(s, http.MethodPut, widgetsPath(item), "owner-token", `{"name":"Mocha"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Mocha", store.items[created.ID].Name)
	assert.Empty(t, store.items[created.ID].Note)

	resp = do(s, http.MethodPut, widgetsPath("/999"), "owner-token", `{"name":"Mocha"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestResourceWriteNeedsPermission(t *testing.T) {
	s := newTestServer(t)
	mountWidgets(s, newFakeStore())

	resp := do(s, http.MethodPost, widgetsPath(""), "cashier-token", `{"name":"Latte"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestResourceListFilters(t *testing.T) {
	s := newTestServer(t)
	store := newFakeStore()
	mountWidgets(s, store)

	resp := do(s, http.MethodGet, widgetsPath("?name=Latte&start_date=2024-01-01&end_date=2024-01-31"), "owner-token", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, store.lastOpts)

	resp = do(s, http.MethodGet, widgetsPath("?start_date=January"), "owner-token", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestResourceRejectsMalformedIDs(t *testing.T) {
	s := newTestServer(t)
	mountWidgets(s, newFakeStore())

	resp := do(s, http.MethodGet, widgetsPath("/not-a-number"), "owner-token", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRequireRole(t *testing.T) {
	s := newTestServer(t)
	biz := s.engine.Group("/businesses/:business_id", s.AuthRequired(), s.BusinessContext())
	biz.POST("/broadcast", s.requireRole(businessdomain.RoleOwner, businessdomain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	path := fmt.Sprintf("/businesses/%d/broadcast", testBusinessID)
	assert.Equal(t, http.StatusAccepted, do(s, http.MethodPost, path, "owner-token", "").Code)
	assert.Equal(t, http.StatusForbidden, do(s, http.MethodPost, path, "cashier-token", "").Code)
	assert.Equal(t, http.StatusAccepted, do(s, http.MethodPost, path, "staff-token", "").Code)
}

func TestPaymentWebhook(t *testing.T) {
	s := newTestServer(t)
	ingester := &fakeIngester{event: &paymentdomain.WebhookEvent{ID: 77}}
	s.webhooks = ingester
	s.engine.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)

	resp := do(s, http.MethodPost, "/webhooks/payments/stripe", "", `{"id":"evt_1"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","event_id":"77"}`, resp.Body.String())
	assert.Equal(t, `{"id":"evt_1"}`, string(ingester.got))

	ingester.event = nil
	resp = do(s, http.MethodPost, "/webhooks/payments/stripe", "", `{}`)
	assert.JSONEq(t, `{"status":"ignored"}`, resp.Body.String())

	ingester.err = apperror.Unauthenticated("invalid_signature")
	resp = do(s, http.MethodPost, "/webhooks/payments/stripe", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer(t)
	s.registerFallback()

	resp := do(s, http.MethodGet, "/api/v1/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not_found", decodeError(t, resp).Code)
}
