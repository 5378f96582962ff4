package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/dto"
	bookingapp "hotelbook/internal/app/handlers/booking"
	"hotelbook/internal/app/ledger"
	"hotelbook/internal/app/middleware"
	"hotelbook/internal/app/queries"
	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/money"
	"hotelbook/internal/infra/lock"
	"hotelbook/internal/infra/obs"
	"hotelbook/internal/infra/security"
	"hotelbook/internal/infra/storage/memory"
)

type testAPI struct {
	router   *gin.Engine
	verifier security.Verifier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	box := memory.NewOutbox()
	require.NoError(t, store.SeedRoom(context.Background(), &domainrooms.Room{
		ID:           "room-x",
		Name:         "Room X",
		NightlyPrice: money.Must("100", "EUR"),
		Bookable:     true,
		Available:    true,
	}))
	l := &ledger.Ledger{
		UoWFactory: memory.Factory{Store: store, Outbox: box},
		Locker:     lock.NewKeyedMutex(),
		Outbox:     box,
		Clock:      func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) },
		Policy:     ledger.DefaultPolicy(),
		Logger:     obs.Discard(),
	}
	cmdBus := commands.NewInMemoryBus()
	bookingapp.RegisterCommands(cmdBus, l)
	qryBus := queries.NewInMemoryBus()
	bookingapp.RegisterQueries(qryBus, l)
	stack := middleware.Stack{
		Logger:      obs.Discard(),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Outbox:      box,
	}
	cmds := stack.Commands(cmdBus)
	qrys := stack.Queries(qryBus)

	verifier := security.Verifier{Secret: []byte("test-secret")}
	router := NewRouter(obs.Middleware{Logger: obs.Discard()}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: cmds, Queries: qrys},
		AdminBooking:   AdminBookingHandler{Commands: cmds, Queries: qrys},
		Room:           RoomHandler{Queries: qrys},
		AuthMiddleware: AuthMiddleware{Verifier: verifier}.Handle,
	})
	return &testAPI{router: router, verifier: verifier}
}

func (a *testAPI) token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := a.verifier.Issue(subject, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func bookingBody(in, out string) map[string]any {
	return map[string]any{
		"roomId":   "room-x",
		"checkIn":  in,
		"checkOut": out,
		"guests":   map[string]int{"adults": 2, "children": 1},
	}
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	guest := api.token(t, "user-1", "user")
	admin := api.token(t, "admin-1", "admin")

	rec := api.do(t, http.MethodPost, "/api/bookings", guest, bookingBody("2024-01-10", "2024-01-12"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[dto.Booking](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "pending", created.PaymentStatus)
	assert.Equal(t, "200.00", created.TotalPrice.Amount)
	assert.Equal(t, 3, created.GuestCount)
	assert.Equal(t, "user-1", created.UserID)

	rec = api.do(t, http.MethodPost, "/api/bookings", guest, bookingBody("2024-01-11", "2024-01-13"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "conflict", decode[map[string]string](t, rec)["error"])

	rec = api.do(t, http.MethodGet, "/api/rooms/room-x/availability?checkIn=2024-01-10&checkOut=2024-01-12", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[dto.Availability](t, rec).Available)

	rec = api.do(t, http.MethodGet, "/api/bookings", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[dto.BookingCollection](t, rec).Count)

	rec = api.do(t, http.MethodGet, "/api/bookings/"+created.ID, api.token(t, "user-2", "user"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/admin/bookings/"+created.ID+"/status", admin, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[dto.Booking](t, rec).Status)

	rec = api.do(t, http.MethodPut, "/api/bookings/"+created.ID+"/cancel", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[dto.Booking](t, rec).Status)

	rec = api.do(t, http.MethodPut, "/api/bookings/"+created.ID+"/cancel", guest, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_state", decode[map[string]string](t, rec)["error"])

	rec = api.do(t, http.MethodGet, "/api/rooms/room-x/availability?checkIn=2024-01-10&checkOut=2024-01-12", "", nil)
	assert.True(t, decode[dto.Availability](t, rec).Available)

	rec = api.do(t, http.MethodGet, "/api/admin/bookings?status=cancelled", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[dto.BookingCollection](t, rec).Count)
}

func TestAuthenticationRequired(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/bookings", "", bookingBody("2024-01-10", "2024-01-12"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/bookings", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/admin/bookings", api.token(t, "user-1", "user"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInputErrors(t *testing.T) {
	api := newTestAPI(t)
	guest := api.token(t, "user-1", "user")

	rec := api.do(t, http.MethodPost, "/api/bookings", guest, bookingBody("2024-01-12", "2024-01-10"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode[map[string]string](t, rec)["error"])

	rec = api.do(t, http.MethodPost, "/api/bookings", guest, bookingBody("soon", "2024-01-10"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/rooms/nope/availability?checkIn=2024-01-10&checkOut=2024-01-12", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[map[string]string](t, rec)["error"])

	rec = api.do(t, http.MethodGet, "/api/admin/bookings?status=archived", api.token(t, "a", "admin"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/bookings/missing", guest, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	api := newTestAPI(t)
	guest := api.token(t, "user-1", "user")

	first := api.do(t, http.MethodPost, "/api/bookings", guest, bookingBody("2024-02-01", "2024-02-03"), "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	second := api.do(t, http.MethodPost, "/api/bookings", guest, bookingBody("2024-02-01", "2024-02-03"), "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, decode[dto.Booking](t, first).ID, decode[dto.Booking](t, second).ID)

	rec := api.do(t, http.MethodGet, "/api/bookings", guest, nil)
	assert.Equal(t, 1, decode[dto.BookingCollection](t, rec).Count)
}
