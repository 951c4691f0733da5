package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-attendance-api/internal/models"
	"github.com/noah-isme/college-attendance-api/internal/service"
	appErrors "github.com/noah-isme/college-attendance-api/pkg/errors"
	"github.com/noah-isme/college-attendance-api/pkg/response"
)

// AccountHandler exposes faculty account endpoints.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// CreateFaculty godoc
// @Summary Create faculty account
// @Tags Faculty
// @Accept json
// @Produce json
// @Param payload body service.CreateFacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /faculty [post]
func (h *AccountHandler) CreateFaculty(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateFacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	account, err := h.accounts.CreateFaculty(c.Request.Context(), claims.Actor(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// ListFaculty godoc
// @Summary List faculty accounts
// @Tags Faculty
// @Produce json
// @Param search query string false "Search by username or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *AccountHandler) ListFaculty(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.AccountFilter
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	accounts, pagination, err := h.accounts.ListFaculty(c.Request.Context(), claims.Actor(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, pagination)
}
