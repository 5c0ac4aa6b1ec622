package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/events"
	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus()
	srv := NewHTTPServer(
		config.ServerConfig{Port: 0},
		config.RateLimitConfig{},
		service.NewUserService(db, &logger),
		service.NewItemService(db, bus, &logger),
		service.NewBookingService(db, bus, &logger),
		service.NewRequestService(db, &logger),
		nil,
		&logger,
	)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url string, actingUserID int64, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if actingUserID != 0 {
		req.Header.Set(HeaderUserID, strconv.FormatInt(actingUserID, 10))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createUser(t *testing.T, baseURL, name, email string) models.User {
	t.Helper()
	resp := doRequest(t, http.MethodPost, baseURL+"/users", 0, map[string]string{"name": name, "email": email})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[models.User](t, resp)
}

func createItem(t *testing.T, baseURL string, ownerID int64, name string, available bool) models.Item {
	t.Helper()
	resp := doRequest(t, http.MethodPost, baseURL+"/items", ownerID, map[string]any{
		"name":        name,
		"description": name + " description",
		"available":   available,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[models.Item](t, resp)
}

func createBooking(t *testing.T, baseURL string, bookerID, itemID int64, start, end time.Time) models.Booking {
	t.Helper()
	resp := doRequest(t, http.MethodPost, baseURL+"/bookings", bookerID, map[string]any{
		"itemId": itemID,
		"start":  start,
		"end":    end,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[models.Booking](t, resp)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserLifecycle(t *testing.T) {
	ts := newTestServer(t)

	user := createUser(t, ts.URL, "Alice", "alice@example.com")
	assert.Equal(t, "Alice", user.Name)

	// duplicate email
	resp := doRequest(t, http.MethodPost, ts.URL+"/users", 0, map[string]string{"name": "Alice2", "email": "alice@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// partial patch keeps the email
	resp = doRequest(t, http.MethodPatch, fmt.Sprintf("%s/users/%d", ts.URL, user.ID), 0, map[string]string{"name": "Alicia"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.User](t, resp)
	assert.Equal(t, "Alicia", updated.Name)
	assert.Equal(t, "alice@example.com", updated.Email)

	resp = doRequest(t, http.MethodDelete, fmt.Sprintf("%s/users/%d", ts.URL, user.ID), 0, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, fmt.Sprintf("%s/users/%d", ts.URL, user.ID), 0, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateItemRequiresUserHeader(t *testing.T) {
	ts := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/items", 0, map[string]any{"name": "Drill", "available": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestItemUpdateForbiddenForNonOwner(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	other := createUser(t, ts.URL, "Bob", "bob@example.com")
	item := createItem(t, ts.URL, owner.ID, "Drill", true)

	resp := doRequest(t, http.MethodPatch, fmt.Sprintf("%s/items/%d", ts.URL, item.ID), other.ID, map[string]string{"name": "Stolen"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestItemSearch(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	createItem(t, ts.URL, owner.ID, "Cordless Drill", true)
	createItem(t, ts.URL, owner.ID, "Hammer", true)

	resp := doRequest(t, http.MethodGet, ts.URL+"/items/search?text=drill", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decodeBody[[]models.Item](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, "Cordless Drill", items[0].Name)

	// blank text yields empty list
	resp = doRequest(t, http.MethodGet, ts.URL+"/items/search?text=", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items = decodeBody[[]models.Item](t, resp)
	assert.Empty(t, items)
}

func TestBookingLifecycle(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	booker := createUser(t, ts.URL, "Bob", "bob@example.com")
	item := createItem(t, ts.URL, owner.ID, "Drill", true)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	booking := createBooking(t, ts.URL, booker.ID, item.ID, start, start.Add(time.Hour))
	assert.Equal(t, models.StatusWaiting, booking.Status)

	// stranger cannot read it
	stranger := createUser(t, ts.URL, "Carol", "carol@example.com")
	resp := doRequest(t, http.MethodGet, fmt.Sprintf("%s/bookings/%d", ts.URL, booking.ID), stranger.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// booker cannot approve
	resp = doRequest(t, http.MethodPatch, fmt.Sprintf("%s/bookings/%d?approved=true", ts.URL, booking.ID), booker.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// owner approves
	resp = doRequest(t, http.MethodPatch, fmt.Sprintf("%s/bookings/%d?approved=true", ts.URL, booking.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decodeBody[models.Booking](t, resp)
	assert.Equal(t, models.StatusApproved, approved.Status)

	// second decision conflicts
	resp = doRequest(t, http.MethodPatch, fmt.Sprintf("%s/bookings/%d?approved=false", ts.URL, booking.ID), owner.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// both sides list it
	resp = doRequest(t, http.MethodGet, ts.URL+"/bookings?state=FUTURE", booker.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bookerView := decodeBody[[]models.Booking](t, resp)
	require.Len(t, bookerView, 1)

	resp = doRequest(t, http.MethodGet, ts.URL+"/bookings/owner?state=ALL", owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ownerView := decodeBody[[]models.Booking](t, resp)
	require.Len(t, ownerView, 1)
}

func TestBookingValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	booker := createUser(t, ts.URL, "Bob", "bob@example.com")
	item := createItem(t, ts.URL, owner.ID, "Drill", true)

	start := time.Now().UTC().Add(24 * time.Hour)

	// end before start
	resp := doRequest(t, http.MethodPost, ts.URL+"/bookings", booker.ID, map[string]any{
		"itemId": item.ID, "start": start, "end": start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// owner booking own item
	resp = doRequest(t, http.MethodPost, ts.URL+"/bookings", owner.ID, map[string]any{
		"itemId": item.ID, "start": start, "end": start.Add(time.Hour),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// unknown state
	resp = doRequest(t, http.MethodGet, ts.URL+"/bookings?state=BOGUS", booker.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// negative from
	resp = doRequest(t, http.MethodGet, ts.URL+"/bookings?from=-1", booker.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestBookingOverlapConflict(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	booker := createUser(t, ts.URL, "Bob", "bob@example.com")
	other := createUser(t, ts.URL, "Carol", "carol@example.com")
	item := createItem(t, ts.URL, owner.ID, "Drill", true)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	createBooking(t, ts.URL, booker.ID, item.ID, start, start.Add(2*time.Hour))

	resp := doRequest(t, http.MethodPost, ts.URL+"/bookings", other.ID, map[string]any{
		"itemId": item.ID, "start": start.Add(time.Hour), "end": start.Add(3 * time.Hour),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestCommentAfterFinishedBooking(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	booker := createUser(t, ts.URL, "Bob", "bob@example.com")
	item := createItem(t, ts.URL, owner.ID, "Drill", true)

	// comment before any booking is rejected
	resp := doRequest(t, http.MethodPost, fmt.Sprintf("%s/items/%d/comment", ts.URL, item.ID), booker.ID, map[string]string{"text": "great"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// a booking that already ended unlocks commenting
	start := time.Now().UTC().Add(-2 * time.Hour)
	createBooking(t, ts.URL, booker.ID, item.ID, start, start.Add(time.Hour))

	resp = doRequest(t, http.MethodPost, fmt.Sprintf("%s/items/%d/comment", ts.URL, item.ID), booker.ID, map[string]string{"text": "great"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comment := decodeBody[models.Comment](t, resp)
	assert.Equal(t, "Bob", comment.AuthorName)

	// the comment shows up on the item
	resp = doRequest(t, http.MethodGet, fmt.Sprintf("%s/items/%d", ts.URL, item.ID), booker.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[models.Item](t, resp)
	require.Len(t, got.Comments, 1)
	assert.Nil(t, got.LastBooking)
}

func TestOwnerSeesBookingsOnItem(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	booker := createUser(t, ts.URL, "Bob", "bob@example.com")
	item := createItem(t, ts.URL, owner.ID, "Drill", true)

	start := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	booking := createBooking(t, ts.URL, booker.ID, item.ID, start, start.Add(time.Hour))

	resp := doRequest(t, http.MethodPatch, fmt.Sprintf("%s/bookings/%d?approved=true", ts.URL, booking.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, fmt.Sprintf("%s/items/%d", ts.URL, item.ID), owner.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[models.Item](t, resp)
	require.NotNil(t, got.LastBooking)
	assert.Equal(t, booking.ID, got.LastBooking.ID)
}

func TestRequestFlow(t *testing.T) {
	ts := newTestServer(t)

	requester := createUser(t, ts.URL, "Alice", "alice@example.com")
	responder := createUser(t, ts.URL, "Bob", "bob@example.com")

	resp := doRequest(t, http.MethodPost, ts.URL+"/requests", requester.ID, map[string]string{"description": "need a drill"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	request := decodeBody[models.ItemRequest](t, resp)

	// responder offers an item against the request
	resp = doRequest(t, http.MethodPost, ts.URL+"/items", responder.ID, map[string]any{
		"name": "Drill", "description": "Cordless", "available": true, "requestId": request.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, ts.URL+"/requests", requester.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	own := decodeBody[[]models.ItemRequest](t, resp)
	require.Len(t, own, 1)
	require.Len(t, own[0].Items, 1)
	assert.Equal(t, "Drill", own[0].Items[0].Name)

	// requester's own requests are excluded from /requests/all
	resp = doRequest(t, http.MethodGet, ts.URL+"/requests/all", requester.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	others := decodeBody[[]models.ItemRequest](t, resp)
	assert.Empty(t, others)

	resp = doRequest(t, http.MethodGet, ts.URL+"/requests/all", responder.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	others = decodeBody[[]models.ItemRequest](t, resp)
	require.Len(t, others, 1)

	resp = doRequest(t, http.MethodGet, ts.URL+"/requests/999", requester.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestExportBookings(t *testing.T) {
	ts := newTestServer(t)

	owner := createUser(t, ts.URL, "Alice", "alice@example.com")
	booker := createUser(t, ts.URL, "Bob", "bob@example.com")
	item := createItem(t, ts.URL, owner.ID, "Drill", true)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	createBooking(t, ts.URL, booker.ID, item.ID, start, start.Add(time.Hour))

	resp, err := http.Get(ts.URL + "/admin/export/bookings")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
