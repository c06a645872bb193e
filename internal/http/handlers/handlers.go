package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/leadsight/backend/internal/db"
	"github.com/leadsight/backend/internal/filter"
	"github.com/leadsight/backend/internal/models"
	"github.com/leadsight/backend/internal/roster"
)

type Handler struct {
	Store           *db.Store
	Roster          *roster.Roster
	Backfill        *roster.Backfill
	Validator       *validator.Validate
	Logger          zerolog.Logger
	DefaultPageSize int
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List customers
// @Description Paginated customer list with search, filters, probability backfill and ranking
// @Tags customers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(10)
// @Param search query string false "Name or id substring"
// @Param filters query string false "Serialized filter spec (JSON)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/customers [get]
func (h *Handler) CustomersList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(h.DefaultPageSize)))
	search := c.Query("search")

	spec, err := filter.Parse([]byte(c.Query("filters")))
	if err != nil {
		var verr *filter.ValidationError
		if errors.As(err, &verr) {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown filter value", gin.H{
				"field": verr.Field,
				"value": verr.Value,
			})
			return
		}
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed filters parameter", err.Error())
		return
	}

	if err := h.Roster.Query(c.Request.Context(), page, pageSize, search, spec); err != nil {
		writeError(c, http.StatusInternalServerError, "REFRESH_ERROR", "Customer refresh failed", err.Error())
		return
	}

	snap := h.Roster.Snapshot()
	writeSuccess(c, gin.H{
		"customers":  snap.Customers,
		"totalPages": snap.TotalPages,
		"totalItems": snap.TotalItems,
		"page":       snap.Page,
	})
}

type AddCustomerRequest struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Age          int     `json:"age" validate:"required,gte=17"`
	Job          string  `json:"job"`
	Marital      string  `json:"marital"`
	Education    string  `json:"education"`
	Default      string  `json:"default"`
	Housing      string  `json:"housing"`
	Loan         string  `json:"loan"`
	Deposit      string  `json:"deposit"`
	Contact      string  `json:"contact"`
	Month        string  `json:"month"`
	Day          string  `json:"day"`
	Duration     int     `json:"duration" validate:"gte=0"`
	Campaign     int     `json:"campaign" validate:"gte=0"`
	PDays        int     `json:"pdays"`
	Previous     int     `json:"previous" validate:"gte=0"`
	POutcome     string  `json:"poutcome"`
	EmpVarRate   float64 `json:"emp_var_rate"`
	ConsPriceIdx float64 `json:"cons_price_idx"`
	ConsConfIdx  float64 `json:"cons_conf_idx"`
	Euribor3m    float64 `json:"euribor3m"`
	NrEmployed   float64 `json:"nr_employed"`
	Balance      int     `json:"balance"`
}

// @Summary Add a customer
// @Tags customers
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/customers [post]
func (h *Handler) AddCustomer(c *gin.Context) {
	var req AddCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	customer := models.Customer{
		ID: req.ID, Name: req.Name, Age: req.Age, Job: req.Job, Marital: req.Marital,
		Education: req.Education, Default: req.Default, Housing: req.Housing, Loan: req.Loan,
		Deposit: req.Deposit, Contact: req.Contact, Month: req.Month, Day: req.Day,
		Duration: req.Duration, Campaign: req.Campaign, PDays: req.PDays, Previous: req.Previous,
		POutcome: req.POutcome, EmpVarRate: req.EmpVarRate, ConsPriceIdx: req.ConsPriceIdx,
		ConsConfIdx: req.ConsConfIdx, Euribor3m: req.Euribor3m, NrEmployed: req.NrEmployed,
		Balance: req.Balance,
	}
	if err := h.Store.InsertCustomer(c.Request.Context(), customer); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert customer", err.Error())
		return
	}
	writeSuccess(c, gin.H{"id": customer.ID})
}

type UpdateProbabilityRequest struct {
	Probability *float64 `json:"probability" validate:"required,gte=0,lte=1"`
}

// @Summary Update a customer's probability
// @Tags customers
// @Accept json
// @Produce json
// @Param id path string true "Customer id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/customers/{id}/probability [put]
func (h *Handler) UpdateProbability(c *gin.Context) {
	id := c.Param("id")
	var req UpdateProbabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if err := h.Store.SaveProbability(c.Request.Context(), id, *req.Probability); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save probability", err.Error())
		return
	}
	writeSuccess(c, gin.H{"id": id, "probability": *req.Probability})
}

// @Summary Backfill probabilities for one page
// @Description Scores and persists every missing probability on the requested page
// @Tags process
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(h.DefaultPageSize)))

	start := time.Now()
	result, err := h.Store.FetchPage(c.Request.Context(), roster.PageRequest{Page: page, PageSize: pageSize})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customers", err.Error())
		return
	}

	missing := 0
	for _, cust := range result.Customers {
		if cust.Probability == nil {
			missing++
		}
	}

	processed := h.Backfill.Run(c.Request.Context(), result.Customers)
	failed := 0
	for _, cust := range processed {
		if cust.Probability == nil {
			failed++
		}
	}

	writeSuccess(c, gin.H{
		"page":       result.Page,
		"customers":  len(processed),
		"missing":    missing,
		"scored":     missing - failed,
		"failed":     failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

func (h *Handler) NotesList(c *gin.Context) {
	notes, err := h.Store.ListNotes(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list notes", err.Error())
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeSuccess(c, gin.H{"notes": notes})
}

type NoteCreateRequest struct {
	Title      string `json:"title" validate:"required,max=120"`
	Body       string `json:"body" validate:"required,max=350"`
	CustomerID string `json:"customerId" validate:"required"`
	Sales      string `json:"sales"`
}

func (h *Handler) NoteCreate(c *gin.Context) {
	var req NoteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	note := models.Note{
		CustomerID: req.CustomerID,
		Title:      req.Title,
		Body:       req.Body,
		Sales:      req.Sales,
		CreatedAt:  time.Now().UTC(),
	}
	id, err := h.Store.InsertNote(c.Request.Context(), note)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create note", err.Error())
		return
	}
	note.ID = id
	writeSuccess(c, gin.H{"note": note})
}

type NoteUpdateRequest struct {
	Title string `json:"title" validate:"required,max=120"`
	Body  string `json:"body" validate:"required,max=350"`
}

func (h *Handler) NoteUpdate(c *gin.Context) {
	id := c.Param("id")
	var req NoteUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	if err := h.Store.UpdateNote(c.Request.Context(), id, req.Title, req.Body); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Note not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update note", err.Error())
		return
	}
	writeSuccess(c, gin.H{"id": id})
}

func (h *Handler) NoteDelete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Store.DeleteNote(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Note not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete note", err.Error())
		return
	}
	writeSuccess(c, gin.H{"id": id})
}

func writeSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   data,
	})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
