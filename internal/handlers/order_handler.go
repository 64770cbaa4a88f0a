package handlers

import (
	"fmt"
	"net/http"

	"gestion-backend/internal/models"
	"gestion-backend/internal/services"
	"gestion-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type OrderHandler struct {
	Service *services.OrderService
	Reports *services.ReportService
}

func NewOrderHandler(s *services.OrderService, reports *services.ReportService) *OrderHandler {
	return &OrderHandler{Service: s, Reports: reports}
}

// ListOrders returns the orders visible to the caller.
// Query: ?status=&limit=&offset=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := models.OrderFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  utils.QueryInt(r, "limit", 100),
		Offset: utils.QueryInt(r, "offset", 0),
	}
	orders, err := h.Service.List(r.Context(), actorFrom(r), filter)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.AppError(w, r, err)
		return
	}
	order, err := h.Service.Create(r.Context(), actorFrom(r), &req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, order)
}

// GetOrder returns the order with its appointments, executions and the
// actions available to the caller
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	detail, err := h.Service.Detail(r.Context(), actorFrom(r), id)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, detail)
}

func (h *OrderHandler) AvailableActions(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	actions, err := h.Service.AvailableActions(r.Context(), actorFrom(r), id)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string][]string{"actions": actions})
}

// ApplyAction runs a workflow step: POST /api/orders/{id}/actions/{action}.
// An empty body is allowed for actions without inputs.
func (h *OrderHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	var req models.OrderActionRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.AppError(w, r, err)
			return
		}
	}
	order, err := h.Service.ApplyAction(r.Context(), actorFrom(r), id, mux.Vars(r)["action"], &req)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	executions, err := h.Service.ListExecutions(r.Context(), actorFrom(r), id)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, executions)
}

// Report downloads the order summary as PDF
func (h *OrderHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt(r, "id")
	if err != nil {
		utils.AppError(w, r, err)
		return
	}
	data, filename, err := h.Reports.OrderReport(r.Context(), actorFrom(r), id)
	if err != nil {
		utils.AppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(data)
}
