package handlers

import (
	"strconv"
	"strings"

	"github.com/dukabook/duka-ledger/internal/model"
	xhttp "github.com/dukabook/duka-ledger/pkg/http"
	"github.com/fasthttp/router"
)

type PaymentHandler struct {
	svc LedgerService
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/payments", h.ApplyPayment)
	e.GET("/payments", h.ListPayments)
}

func NewPaymentHandler(svc LedgerService) *PaymentHandler {
	return &PaymentHandler{
		svc: svc,
	}
}

type applyPaymentRequest struct {
	CustomerName string `json:"customer_name"`
	Amount       uint   `json:"amount"`
	PaymentDate  string `json:"payment_date"`
}

type paymentListResponse struct {
	Items []*model.Payment `json:"items"`
	Total int64            `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PaymentHandler) ApplyPayment(ctx *xhttp.RequestCtx) {
	var req applyPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	payDate, err := parseTime(req.PaymentDate)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid payment_date: "+req.PaymentDate)
		return
	}

	p := model.PaymentRequest{
		CustomerName: req.CustomerName,
		Amount:       req.Amount,
		PaymentDate:  payDate,
	}
	receipt, err := h.svc.ApplyPayment(ctx, p)
	if err != nil {
		writeError(ctx, statusFromError(err), err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, receipt)
}

func (h *PaymentHandler) ListPayments(ctx *xhttp.RequestCtx) {
	var f model.PaymentFilter

	if v := query(ctx, "customer_name"); v != "" {
		f.CustomerName = &v
	}
	if v := query(ctx, "debt_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.DebtID = &id
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.Payments(ctx, f)
	if err != nil {
		writeError(ctx, statusFromError(err), err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, paymentListResponse{Items: items, Total: total})
}
