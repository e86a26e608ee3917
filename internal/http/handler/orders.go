package handler

import (
	"context"
	"log/slog"
	"net/http"

	"orderChat/internal/domain/models"
	orderservice "orderChat/internal/service/order"

	"github.com/google/uuid"
)

type OrderService interface {
	Create(ctx context.Context, p models.Principal, in orderservice.CreateOrderInput) (models.Order, error)
	Orders(ctx context.Context, p models.Principal, page models.Page) (models.OrderPage, error)
	AllOrders(ctx context.Context, p models.Principal, page models.Page) (models.OrderPage, error)
	OrdersByUser(ctx context.Context, p models.Principal, userID uuid.UUID, page models.Page) (models.OrderPage, error)
	Order(ctx context.Context, p models.Principal, id uuid.UUID) (models.Order, error)
	AnyOrder(ctx context.Context, p models.Principal, id uuid.UUID) (models.Order, error)
	Update(ctx context.Context, p models.Principal, id uuid.UUID, upd models.OrderUpdate) (models.Order, error)
}

type CreateOrderRequest struct {
	Description    string `json:"description" validate:"required,max=2000"`
	Specifications string `json:"specifications" validate:"max=4000"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
}

type UpdateOrderRequest struct {
	Description    *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Specifications *string `json:"specifications,omitempty" validate:"omitempty,max=4000"`
	Quantity       *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	State          *string `json:"state,omitempty"`
}

func CreateOrderHandler(log *slog.Logger, orders OrderService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.CreateOrderHandler"

		log := log.With(slog.String("op", op))

		var req CreateOrderRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		order, err := orders.Create(r.Context(), principal(r), orderservice.CreateOrderInput{
			Description:    req.Description,
			Specifications: req.Specifications,
			Quantity:       req.Quantity,
		})
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusCreated, "Order created successfully", toOrder(order))
	}
}

func ListOrdersHandler(log *slog.Logger, orders OrderService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.ListOrdersHandler"

		log := log.With(slog.String("op", op))

		page, err := pageOf(r)
		if err != nil {
			respondError(w, log, err)
			return
		}

		res, err := orders.Orders(r.Context(), principal(r), page)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Orders fetched successfully", toOrdersPage(res))
	}
}

func ListAllOrdersHandler(log *slog.Logger, orders OrderService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.ListAllOrdersHandler"

		log := log.With(slog.String("op", op))

		page, err := pageOf(r)
		if err != nil {
			respondError(w, log, err)
			return
		}

		res, err := orders.AllOrders(r.Context(), principal(r), page)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Orders fetched successfully", toOrdersPage(res))
	}
}

func ListUserOrdersHandler(log *slog.Logger, orders OrderService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.ListUserOrdersHandler"

		log := log.With(slog.String("op", op))

		userID, err := pathID(r, "user_id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		page, err := pageOf(r)
		if err != nil {
			respondError(w, log, err)
			return
		}

		res, err := orders.OrdersByUser(r.Context(), principal(r), userID, page)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Orders fetched successfully", toOrdersPage(res))
	}
}

func GetOrderHandler(log *slog.Logger, orders OrderService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.GetOrderHandler"

		log := log.With(slog.String("op", op))

		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		order, err := orders.Order(r.Context(), principal(r), id)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Order fetched successfully", toOrder(order))
	}
}

func GetAnyOrderHandler(log *slog.Logger, orders OrderService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.GetAnyOrderHandler"

		log := log.With(slog.String("op", op))

		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		order, err := orders.AnyOrder(r.Context(), principal(r), id)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Order fetched successfully", toOrder(order))
	}
}

func UpdateOrderHandler(log *slog.Logger, orders OrderService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.UpdateOrderHandler"

		log := log.With(slog.String("op", op))

		id, err := pathID(r, "id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		var req UpdateOrderRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		upd := models.OrderUpdate{
			Description:    req.Description,
			Specifications: req.Specifications,
			Quantity:       req.Quantity,
		}
		if req.State != nil {
			state := models.OrderState(*req.State)
			upd.State = &state
		}

		order, err := orders.Update(r.Context(), principal(r), id, upd)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Order updated successfully", toOrder(order))
	}
}
