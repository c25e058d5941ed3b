package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"expense-tracker-api/internal/app"
	"expense-tracker-api/internal/transport/http/middleware"
	"expense-tracker-api/internal/transport/http/response"
)

const (
	msgExpenseNotFound = "Expense not found"
	msgExpenseDeleted  = "Expense deleted successfully"
	msgUnauthorized    = "Token is not valid"
)

type ExpenseHandler struct {
	expenseService *app.ExpenseService
}

// ExpenseRequest binds from JSON or multipart form. Absent fields stay nil.
type ExpenseRequest struct {
	Title       *string  `json:"title" form:"title"`
	Description *string  `json:"description" form:"description"`
	Amount      *float64 `json:"amount" form:"amount"`
	Date        *string  `json:"date" form:"date"`
	Category    *string  `json:"category" form:"category"`
	ImageURL    *string  `json:"imageUrl" form:"imageUrl"`
}

func NewExpenseHandler(expenseService *app.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Message(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	input, err := bindExpenseInput(c)
	if err != nil {
		h.expenseService.DiscardUpload(c.Request.Context(), c.GetString(middleware.ContextImageKeyKey))
		response.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), userID, input)
	if err != nil {
		writeExpenseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (h *ExpenseHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Message(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	expenses, err := h.expenseService.List(c.Request.Context(), userID)
	if err != nil {
		response.Message(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, expenses)
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Message(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	expense, err := h.expenseService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeExpenseError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Message(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	input, err := bindExpenseInput(c)
	if err != nil {
		h.expenseService.DiscardUpload(c.Request.Context(), c.GetString(middleware.ContextImageKeyKey))
		response.Message(c, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := h.expenseService.Update(c.Request.Context(), userID, c.Param("id"), input)
	if err != nil {
		writeExpenseError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Message(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	if err := h.expenseService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeExpenseError(c, err)
		return
	}
	response.Message(c, http.StatusOK, msgExpenseDeleted)
}

// bindExpenseInput reads the body and overlays the URL of a receipt stored by
// the upload middleware. An empty body binds to an input with no fields.
func bindExpenseInput(c *gin.Context) (app.ExpenseInput, error) {
	var req ExpenseRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		return app.ExpenseInput{}, err
	}

	input := app.ExpenseInput{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if url := c.GetString(middleware.ContextImageURLKey); url != "" {
		input.ImageURL = &url
		input.ImageKey = c.GetString(middleware.ContextImageKeyKey)
	}
	return input, nil
}

func writeExpenseError(c *gin.Context, err error) {
	var verr *app.ValidationError
	switch {
	case errors.Is(err, app.ErrExpenseNotFound):
		response.Message(c, http.StatusNotFound, msgExpenseNotFound)
	case errors.As(err, &verr):
		response.Message(c, http.StatusBadRequest, verr.Message)
	default:
		response.Message(c, http.StatusInternalServerError, err.Error())
	}
}

func getUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserIDKey)
	return userID, userID != ""
}
