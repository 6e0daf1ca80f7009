package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/dukabook/duka-ledger/internal/services"
	xhttp "github.com/dukabook/duka-ledger/pkg/http"
	"github.com/fasthttp/router"
)

type LedgerService interface {
	RecordDebt(ctx context.Context, p model.DebtCreateRequest) (*model.Debt, error)
	ApplyPayment(ctx context.Context, p model.PaymentRequest) (*model.PaymentReceipt, error)
	GetDebt(ctx context.Context, id int64) (*model.Debt, error)
	OpenDebts(ctx context.Context) ([]*model.Debt, error)
	Totals(ctx context.Context) (*model.LedgerTotals, error)
	Customers(ctx context.Context) ([]string, error)
	Payments(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
}

type DebtHandler struct {
	svc LedgerService
}

func RegisterDebtRoutes(e *router.Group, h *DebtHandler) {
	e.POST("/debts", h.CreateDebt)
	e.GET("/debts", h.ListOpenDebts)
	e.GET("/debts/totals", h.GetTotals)
	e.GET("/debts/{id}", h.GetDebt)
	e.GET("/customers", h.ListCustomers)
}

func NewDebtHandler(svc LedgerService) *DebtHandler {
	return &DebtHandler{
		svc: svc,
	}
}

type createDebtRequest struct {
	CustomerName    string `json:"customer_name"`
	Product         string `json:"product"`
	Total           uint   `json:"total"`
	Paid            uint   `json:"paid"`
	TransactionDate string `json:"transaction_date"`
}

type openDebtsResponse struct {
	Items []*model.Debt `json:"items"`
	Total int           `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *DebtHandler) CreateDebt(ctx *xhttp.RequestCtx) {
	var req createDebtRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	txDate, err := parseTime(req.TransactionDate)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid transaction_date: "+req.TransactionDate)
		return
	}

	p := model.DebtCreateRequest{
		CustomerName:    req.CustomerName,
		Product:         req.Product,
		Total:           req.Total,
		Paid:            req.Paid,
		TransactionDate: txDate,
	}
	debt, err := h.svc.RecordDebt(ctx, p)
	if err != nil {
		writeError(ctx, statusFromError(err), err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, debt)
}

func (h *DebtHandler) GetDebt(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid debt id")
		return
	}

	debt, err := h.svc.GetDebt(ctx, id)
	if err != nil {
		writeError(ctx, statusFromError(err), err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, debt)
}

func (h *DebtHandler) ListOpenDebts(ctx *xhttp.RequestCtx) {
	items, err := h.svc.OpenDebts(ctx)
	if err != nil {
		writeError(ctx, statusFromError(err), err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, openDebtsResponse{Items: items, Total: len(items)})
}

func (h *DebtHandler) GetTotals(ctx *xhttp.RequestCtx) {
	totals, err := h.svc.Totals(ctx)
	if err != nil {
		writeError(ctx, statusFromError(err), err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, totals)
}

func (h *DebtHandler) ListCustomers(ctx *xhttp.RequestCtx) {
	names, err := h.svc.Customers(ctx)
	if err != nil {
		writeError(ctx, statusFromError(err), err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"items": names, "total": len(names)})
}

/* -------------------------------- Helpers ------------------------------------ */

func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return xhttp.StatusBadRequest
	case errors.Is(err, services.ErrNoOpenDebt), errors.Is(err, services.ErrNotFound):
		return xhttp.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return xhttp.StatusConflict
	case errors.Is(err, services.ErrInvalidAmount):
		return xhttp.StatusUnprocessableEntity
	default:
		return xhttp.StatusInternalServerError
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
