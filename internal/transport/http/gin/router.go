// Package httpgin exposes the ledger over HTTP. Mutations return 202 with
// a transaction hash; reads serve the in-memory state, with the hot event
// views cached behind ETags.
package httpgin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skip2/go-qrcode"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tixledger/tixledger/internal/domain"
	"github.com/tixledger/tixledger/internal/ledger"
	redisrepo "github.com/tixledger/tixledger/internal/repository/redis"
	"github.com/tixledger/tixledger/internal/service"
	"github.com/tixledger/tixledger/internal/service/submit"
)

type handler struct {
	services *service.Services
	idem     *redisrepo.IdempotencyStore
	logger   *slog.Logger
}

// NewRouter builds the HTTP surface. idem may be nil; purchase submissions
// then skip Idempotency-Key deduplication.
func NewRouter(
	services *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	h := &handler{services: services, idem: idem, logger: logger}

	r.GET("/healthz", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	events := r.Group("/events")
	{
		events.GET("", h.listEvents)
		events.GET("/:id", h.getEvent)
		events.GET("/:id/availability", h.getAvailability)
		events.POST("", h.createEvent)
		events.POST("/:id/purchase", h.purchaseTickets)
		events.POST("/:id/cancel", h.cancelEvent)
		events.POST("/:id/complete", h.completeEvent)
		events.POST("/:id/withdraw", h.withdrawFunds)
	}

	tickets := r.Group("/tickets")
	{
		tickets.GET("/:id", h.getTicket)
		tickets.GET("/:id/valid", h.ticketValidity)
		tickets.GET("/:id/qr", h.ticketQR)
		tickets.POST("/:id/refund", h.requestRefund)
		tickets.POST("/:id/transfer", h.transferTicket)
		tickets.POST("/:id/validate", h.validateTicket)
	}

	accounts := r.Group("/accounts")
	{
		accounts.GET("/:address/tickets", h.ticketsByOwner)
		accounts.GET("/:address/balance", h.balance)
		accounts.POST("/:address/deposit", h.deposit)
	}

	r.GET("/transactions/:hash", h.getTransaction)

	adm := r.Group("/admin")
	{
		adm.POST("/pause", h.pause)
		adm.POST("/unpause", h.unpause)
	}

	return r
}

// health godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]any
// @Router /healthz [get]
func (h *handler) health(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"paused": h.services.Query.Paused(ctx),
		"events": h.services.Query.EventCount(ctx),
	})
}

// listEvents godoc
// @Summary List all events
// @Tags events
// @Produce json
// @Success 200 {array} EventView
// @Router /events [get]
func (h *handler) listEvents(c *gin.Context) {
	evs := h.services.Query.ListEvents(c.Request.Context())
	writeJSONWithCache(c, http.StatusOK, newEventViews(evs), "public, max-age=15", true)
}

// getEvent godoc
// @Summary Get one event
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} EventView
// @Failure 404 {object} ErrorResponse
// @Router /events/{id} [get]
func (h *handler) getEvent(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	ev, err := h.services.Query.GetEvent(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, newEventView(*ev), "public, max-age=15", true)
}

// getAvailability godoc
// @Summary Remaining tickets for an event
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} domain.Availability
// @Failure 404 {object} ErrorResponse
// @Router /events/{id}/availability [get]
func (h *handler) getAvailability(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	avail, err := h.services.Query.Availability(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, avail, "public, max-age=5", true)
}

// createEvent godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "Event definition"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /events [post]
func (h *handler) createEvent(c *gin.Context) {
	var req CreateEventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	date, err := parseRFC3339(req.Date)
	if err != nil {
		h.badRequest(c, "date must be RFC 3339")
		return
	}

	deadline, err := parseRFC3339(req.RefundDeadline)
	if err != nil {
		h.badRequest(c, "refund_deadline must be RFC 3339")
		return
	}

	h.submitTx(c, domain.TxCreateEvent, from, 0, domain.CreateEventParams{
		Name:           req.Name,
		Description:    req.Description,
		Venue:          req.Venue,
		Date:           date,
		TicketPrice:    domain.Amount(req.TicketPrice),
		MaxTickets:     req.MaxTickets,
		RefundDeadline: deadline,
	}, "")
}

// purchaseTickets godoc
// @Summary Purchase tickets for an event
// @Description Value must equal ticket price times quantity. Retries with
// @Description the same Idempotency-Key replay the original response.
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param Idempotency-Key header string false "Deduplication key"
// @Param request body PurchaseRequest true "Purchase order"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /events/{id}/purchase [post]
func (h *handler) purchaseTickets(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req PurchaseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	idemKey := c.GetHeader("Idempotency-Key")
	if h.idem != nil && idemKey != "" {
		key := redisrepo.KeyIdemSubmit(idemKey)

		if cached, found, err := h.idem.GetResult(c.Request.Context(), key); err == nil && found {
			c.Data(http.StatusAccepted, "application/json; charset=utf-8", []byte(cached))
			return
		}

		acquired, err := h.idem.AcquireLock(c.Request.Context(), key, 30*time.Second)
		if err == nil && !acquired {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "request with this Idempotency-Key is in flight"})
			return
		}
	}

	tx, err := h.services.Submit.Submit(
		c.Request.Context(),
		domain.TxPurchaseTickets,
		from,
		domain.Amount(req.Value),
		domain.PurchaseParams{EventID: id, Quantity: req.Quantity},
		"purchase:"+c.ClientIP(),
	)
	if err != nil {
		if h.idem != nil && idemKey != "" {
			_ = h.idem.Release(c.Request.Context(), redisrepo.KeyIdemSubmit(idemKey))
		}
		h.respondErr(c, err)
		return
	}

	resp := SubmitResponse{TxHash: tx.Hash, Status: string(tx.Status)}
	if h.idem != nil && idemKey != "" {
		if b, err := json.Marshal(resp); err == nil {
			_ = h.idem.SaveResult(c.Request.Context(), redisrepo.KeyIdemSubmit(idemKey), string(b))
		}
	}

	c.JSON(http.StatusAccepted, resp)
}

// cancelEvent godoc
// @Summary Cancel an event
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body CallerRequest true "Organizer"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Router /events/{id}/cancel [post]
func (h *handler) cancelEvent(c *gin.Context) {
	h.eventAction(c, domain.TxCancelEvent)
}

// completeEvent godoc
// @Summary Complete an event after its date
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body CallerRequest true "Organizer"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Router /events/{id}/complete [post]
func (h *handler) completeEvent(c *gin.Context) {
	h.eventAction(c, domain.TxCompleteEvent)
}

// withdrawFunds godoc
// @Summary Withdraw proceeds of a completed event
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body CallerRequest true "Organizer"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Router /events/{id}/withdraw [post]
func (h *handler) withdrawFunds(c *gin.Context) {
	h.eventAction(c, domain.TxWithdrawFunds)
}

func (h *handler) eventAction(c *gin.Context, txType domain.TxType) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req CallerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	h.submitTx(c, txType, from, 0, domain.EventParams{EventID: id}, "")
}

// getTicket godoc
// @Summary Get one ticket
// @Tags tickets
// @Produce json
// @Param id path int true "Ticket ID"
// @Success 200 {object} TicketView
// @Failure 404 {object} ErrorResponse
// @Router /tickets/{id} [get]
func (h *handler) getTicket(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	t, err := h.services.Query.GetTicket(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newTicketView(*t))
}

// ticketValidity godoc
// @Summary Admission predicate for a ticket
// @Description Only the event organizer may ask. True means the ticket is
// @Description valid and its event is still active.
// @Tags tickets
// @Produce json
// @Param id path int true "Ticket ID"
// @Param caller query string true "Organizer address"
// @Success 200 {object} TicketValidityResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tickets/{id}/valid [get]
func (h *handler) ticketValidity(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	caller, ok := h.parseAddr(c, c.Query("caller"))
	if !ok {
		return
	}

	valid, err := h.services.Query.IsTicketValid(c.Request.Context(), caller, id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, TicketValidityResponse{TicketID: id, Valid: valid})
}

// ticketQR godoc
// @Summary PNG QR code for a ticket
// @Tags tickets
// @Produce png
// @Param id path int true "Ticket ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /tickets/{id}/qr [get]
func (h *handler) ticketQR(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	t, err := h.services.Query.GetTicket(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	payload := fmt.Sprintf("tixledger://ticket/%d?event=%d&owner=%s", t.TicketID, t.EventID, t.Owner)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to render QR code"})
		return
	}

	c.Header("Cache-Control", "private, max-age=60")
	c.Data(http.StatusOK, "image/png", png)
}

// requestRefund godoc
// @Summary Refund a ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path int true "Ticket ID"
// @Param request body CallerRequest true "Ticket owner"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Router /tickets/{id}/refund [post]
func (h *handler) requestRefund(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req CallerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	h.submitTx(c, domain.TxRequestRefund, from, 0, domain.TicketParams{TicketID: id}, "")
}

// transferTicket godoc
// @Summary Transfer a ticket to another account
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path int true "Ticket ID"
// @Param request body TransferRequest true "Transfer order"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Router /tickets/{id}/transfer [post]
func (h *handler) transferTicket(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	newOwner, ok := h.parseAddr(c, req.NewOwner)
	if !ok {
		return
	}

	h.submitTx(c, domain.TxTransferTicket, from, 0, domain.TransferParams{
		TicketID: id,
		NewOwner: newOwner,
	}, "")
}

// validateTicket godoc
// @Summary Mark a ticket used at the door
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path int true "Ticket ID"
// @Param request body CallerRequest true "Organizer"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Router /tickets/{id}/validate [post]
func (h *handler) validateTicket(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req CallerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	h.submitTx(c, domain.TxValidateTicket, from, 0, domain.TicketParams{TicketID: id}, "")
}

// ticketsByOwner godoc
// @Summary Tickets held by an account
// @Tags accounts
// @Produce json
// @Param address path string true "Account address"
// @Success 200 {array} TicketView
// @Failure 400 {object} ErrorResponse
// @Router /accounts/{address}/tickets [get]
func (h *handler) ticketsByOwner(c *gin.Context) {
	owner, ok := h.parseAddr(c, c.Param("address"))
	if !ok {
		return
	}

	ts := h.services.Query.TicketsByOwner(c.Request.Context(), owner)
	c.JSON(http.StatusOK, newTicketViews(ts))
}

// balance godoc
// @Summary Account balance
// @Tags accounts
// @Produce json
// @Param address path string true "Account address"
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} ErrorResponse
// @Router /accounts/{address}/balance [get]
func (h *handler) balance(c *gin.Context) {
	addr, ok := h.parseAddr(c, c.Param("address"))
	if !ok {
		return
	}

	bal := h.services.Query.Balance(c.Request.Context(), addr)
	c.JSON(http.StatusOK, BalanceResponse{
		Address:    addr.String(),
		Balance:    int64(bal),
		BalanceETH: formatETH(bal),
	})
}

// deposit godoc
// @Summary Deposit funds into an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param address path string true "Account address"
// @Param request body DepositRequest true "Amount"
// @Success 202 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /accounts/{address}/deposit [post]
func (h *handler) deposit(c *gin.Context) {
	addr, ok := h.parseAddr(c, c.Param("address"))
	if !ok {
		return
	}

	var req DepositRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.submitTx(c, domain.TxDeposit, addr, domain.Amount(req.Value), nil, "deposit:"+c.ClientIP())
}

// getTransaction godoc
// @Summary Transaction status by hash
// @Tags transactions
// @Produce json
// @Param hash path string true "Transaction hash"
// @Success 200 {object} domain.Transaction
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{hash} [get]
func (h *handler) getTransaction(c *gin.Context) {
	tx, err := h.services.Submit.GetTransaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// pause godoc
// @Summary Pause all mutations
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CallerRequest true "Administrator"
// @Success 202 {object} SubmitResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/pause [post]
func (h *handler) pause(c *gin.Context) {
	var req CallerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	tx, err := h.services.Admin.Pause(c.Request.Context(), from)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{TxHash: tx.Hash, Status: string(tx.Status)})
}

// unpause godoc
// @Summary Resume mutations
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CallerRequest true "Administrator"
// @Success 202 {object} SubmitResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/unpause [post]
func (h *handler) unpause(c *gin.Context) {
	var req CallerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	from, ok := h.parseAddr(c, req.From)
	if !ok {
		return
	}

	tx, err := h.services.Admin.Unpause(c.Request.Context(), from)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{TxHash: tx.Hash, Status: string(tx.Status)})
}

func (h *handler) submitTx(
	c *gin.Context,
	txType domain.TxType,
	from domain.Address,
	value domain.Amount,
	payload any,
	rlKey string,
) {
	tx, err := h.services.Submit.Submit(c.Request.Context(), txType, from, value, payload, rlKey)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{TxHash: tx.Hash, Status: string(tx.Status)})
}

func (h *handler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func (h *handler) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}

	return true
}

func (h *handler) parseAddr(c *gin.Context, s string) (domain.Address, bool) {
	addr, err := domain.ParseAddress(s)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid address: " + s})
		return domain.ZeroAddress, false
	}

	return addr, true
}

func paramUint(c *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}

	return v, true
}

// respondErr maps typed rejections to HTTP statuses. Most ledger errors
// surface asynchronously in the transaction envelope; this covers query
// rejections and submit-time failures.
func (h *handler) respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrEventDoesNotExist),
		errors.Is(err, ledger.ErrTicketDoesNotExist),
		errors.Is(err, submit.ErrTxNotFound):
		status = http.StatusNotFound

	case errors.Is(err, ledger.ErrNotOrganizer),
		errors.Is(err, ledger.ErrNotTicketOwner),
		errors.Is(err, ledger.ErrNotAdmin):
		status = http.StatusForbidden

	case errors.Is(err, ledger.ErrEmptyString),
		errors.Is(err, ledger.ErrZeroAddress),
		errors.Is(err, ledger.ErrInvalidDate),
		errors.Is(err, ledger.ErrZeroPrice),
		errors.Is(err, ledger.ErrZeroTickets),
		errors.Is(err, ledger.ErrZeroQuantity),
		errors.Is(err, ledger.ErrExceedsMaxPerPurchase),
		errors.Is(err, ledger.ErrIncorrectPayment),
		errors.Is(err, ledger.ErrTransferToSelf),
		errors.Is(err, submit.ErrInvalidPayload):
		status = http.StatusBadRequest

	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired

	case errors.Is(err, ledger.ErrEventNotActive),
		errors.Is(err, ledger.ErrSoldOut),
		errors.Is(err, ledger.ErrRefundDeadlinePassed),
		errors.Is(err, ledger.ErrTicketNotValid),
		errors.Is(err, ledger.ErrEventNotEnded),
		errors.Is(err, ledger.ErrNoFundsToWithdraw):
		status = http.StatusConflict

	case errors.Is(err, ledger.ErrPaused),
		errors.Is(err, submit.ErrQueueFull):
		status = http.StatusServiceUnavailable

	case errors.Is(err, submit.ErrRateLimited):
		status = http.StatusTooManyRequests
	}

	if status == http.StatusInternalServerError && h.logger != nil {
		h.logger.Error("request failed", "error", err)
	}

	kind := ledger.Kind(err)
	if kind == "Internal" && status != http.StatusInternalServerError {
		// Transport-level rejections have no ledger kind.
		kind = ""
	}

	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}
