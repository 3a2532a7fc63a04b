package httpgin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixledger/tixledger/internal/bank"
	"github.com/tixledger/tixledger/internal/domain"
	"github.com/tixledger/tixledger/internal/ledger"
	"github.com/tixledger/tixledger/internal/repository/memory"
	"github.com/tixledger/tixledger/internal/service"
	"github.com/tixledger/tixledger/internal/service/query"
	"github.com/tixledger/tixledger/internal/service/submit"
	httpgin "github.com/tixledger/tixledger/internal/transport/http/gin"
)

const (
	adminAddr     = "0x00000000000000000000000000000000000000ad"
	organizerAddr = "0x0000000000000000000000000000000000000001"
	aliceAddr     = "0x0000000000000000000000000000000000000002"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := bank.NewMemoryBank()
	l := ledger.New(b, ledger.Config{Admin: domain.MustParseAddress(adminAddr)})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	services := service.NewServices(
		l, b, memory.NewJournal(), nil, nil, nil, logger,
		service.Config{
			Submit: submit.Config{QueueSize: 16},
			Query:  query.Config{},
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = services.Submit.Run(ctx) }()

	return httpgin.NewRouter(services, nil, logger)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// submitAndConfirm posts a mutation and polls the transaction endpoint
// until it reaches a terminal status.
func submitAndConfirm(t *testing.T, r *gin.Engine, method, path string, body any) map[string]any {
	t.Helper()

	w := doJSON(t, r, method, path, body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var sub struct {
		TxHash string `json:"tx_hash"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	require.Equal(t, "pending", sub.Status)
	require.NotEmpty(t, sub.TxHash)

	var tx map[string]any
	require.Eventually(t, func() bool {
		resp := doJSON(t, r, http.MethodGet, "/transactions/"+sub.TxHash, nil)
		if resp.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tx))
		return tx["status"] != "pending"
	}, 2*time.Second, 5*time.Millisecond)

	return tx
}

func createEventBody() map[string]any {
	return map[string]any{
		"from":            organizerAddr,
		"name":            "GopherCon",
		"description":     "A conference",
		"venue":           "Berlin",
		"date":            time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"ticket_price":    100,
		"max_tickets":     10,
		"refund_deadline": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCreateAndGetEvent(t *testing.T) {
	r := newTestRouter(t)

	tx := submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())
	require.Equal(t, "confirmed", tx["status"])

	w := doJSON(t, r, http.MethodGet, "/events/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, float64(1), ev["eventId"])
	assert.Equal(t, "GopherCon", ev["name"])
	assert.Equal(t, "active", ev["status"])
	assert.Equal(t, "0.0000000000000001", ev["ticketPriceEth"])
}

func TestGetEvent_NotFound(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/events/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"EventDoesNotExist"`)
}

func TestListEvents_ETag(t *testing.T) {
	r := newTestRouter(t)
	submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())

	first := doJSON(t, r, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("If-None-Match", etag)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestPurchaseFlow(t *testing.T) {
	r := newTestRouter(t)
	submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())

	tx := submitAndConfirm(t, r, http.MethodPost, "/accounts/"+aliceAddr+"/deposit",
		map[string]any{"value": 1000})
	require.Equal(t, "confirmed", tx["status"])

	tx = submitAndConfirm(t, r, http.MethodPost, "/events/1/purchase",
		map[string]any{"from": aliceAddr, "quantity": 2, "value": 200})
	require.Equal(t, "confirmed", tx["status"])

	w := doJSON(t, r, http.MethodGet, "/accounts/"+aliceAddr+"/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":800`)

	w = doJSON(t, r, http.MethodGet, "/accounts/"+aliceAddr+"/tickets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tickets []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tickets))
	require.Len(t, tickets, 2)
	assert.Equal(t, "valid", tickets[0]["status"])

	w = doJSON(t, r, http.MethodGet, "/events/1/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":8`)
}

func TestPurchase_FailureSurfacesInEnvelope(t *testing.T) {
	r := newTestRouter(t)
	submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())

	// Wrong payment: accepted at the transport, failed at apply time.
	tx := submitAndConfirm(t, r, http.MethodPost, "/events/1/purchase",
		map[string]any{"from": aliceAddr, "quantity": 3, "value": 200})

	assert.Equal(t, "failed", tx["status"])
	assert.Equal(t, "IncorrectPayment", tx["errorKind"])
}

func TestTicketValidity_OrganizerGate(t *testing.T) {
	r := newTestRouter(t)
	submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())
	submitAndConfirm(t, r, http.MethodPost, "/accounts/"+aliceAddr+"/deposit",
		map[string]any{"value": 100})
	submitAndConfirm(t, r, http.MethodPost, "/events/1/purchase",
		map[string]any{"from": aliceAddr, "quantity": 1, "value": 100})

	w := doJSON(t, r, http.MethodGet, "/tickets/1/valid?caller="+organizerAddr, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)

	w = doJSON(t, r, http.MethodGet, "/tickets/1/valid?caller="+aliceAddr, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"NotOrganizer"`)

	// Admission marks the ticket used.
	tx := submitAndConfirm(t, r, http.MethodPost, "/tickets/1/validate",
		map[string]any{"from": organizerAddr})
	require.Equal(t, "confirmed", tx["status"])

	w = doJSON(t, r, http.MethodGet, "/tickets/1/valid?caller="+organizerAddr, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
}

func TestTicketQR(t *testing.T) {
	r := newTestRouter(t)
	submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())
	submitAndConfirm(t, r, http.MethodPost, "/accounts/"+aliceAddr+"/deposit",
		map[string]any{"value": 100})
	submitAndConfirm(t, r, http.MethodPost, "/events/1/purchase",
		map[string]any{"from": aliceAddr, "quantity": 1, "value": 100})

	w := doJSON(t, r, http.MethodGet, "/tickets/1/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestCreateEvent_MalformedDatesRejected(t *testing.T) {
	r := newTestRouter(t)

	body := createEventBody()
	body["date"] = "next tuesday"
	w := doJSON(t, r, http.MethodPost, "/events", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "RFC 3339")

	body = createEventBody()
	body["refund_deadline"] = "2026-13-45"
	w = doJSON(t, r, http.MethodPost, "/events", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "refund_deadline")
}

func TestInvalidAddressRejected(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/events/1/purchase",
		map[string]any{"from": "not-an-address", "quantity": 1, "value": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/accounts/nope/balance", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminPause(t *testing.T) {
	r := newTestRouter(t)

	tx := submitAndConfirm(t, r, http.MethodPost, "/admin/pause",
		map[string]any{"from": adminAddr})
	require.Equal(t, "confirmed", tx["status"])

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Contains(t, w.Body.String(), `"paused":true`)

	// Mutations fail while paused; the rejection is in the envelope.
	tx = submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())
	assert.Equal(t, "failed", tx["status"])
	assert.Equal(t, "Paused", tx["errorKind"])

	// Only the administrator may toggle the switch.
	tx = submitAndConfirm(t, r, http.MethodPost, "/admin/unpause",
		map[string]any{"from": aliceAddr})
	assert.Equal(t, "failed", tx["status"])
	assert.Equal(t, "NotAdmin", tx["errorKind"])

	tx = submitAndConfirm(t, r, http.MethodPost, "/admin/unpause",
		map[string]any{"from": adminAddr})
	require.Equal(t, "confirmed", tx["status"])

	tx = submitAndConfirm(t, r, http.MethodPost, "/events", createEventBody())
	assert.Equal(t, "confirmed", tx["status"])
}
