package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tfdomain "github.com/seftec/platform/internal/tradefinance/domain"
	"github.com/seftec/platform/pkg/db/pagination"
)

func (s *Server) CreateApplication(c *gin.Context) {
	var req tfdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	application, err := s.tradeFinanceSvc.Create(c.Request.Context(), requestUserID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, application)
}

func (s *Server) GetApplication(c *gin.Context) {
	application, err := s.tradeFinanceSvc.Get(c.Request.Context(), c.Param("id"), requestUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, application)
}

func (s *Server) ListApplications(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page size must be between 1 and 100"))
		return
	}

	filter := tfdomain.ListRequest{
		PageToken: strings.TrimSpace(page.PageToken),
		PageSize:  page.PageSize,
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		parsed := tfdomain.ApplicationStatus(status)
		if !parsed.Valid() {
			AbortWithError(c, newValidationError("status", "invalid_status", "unknown application status"))
			return
		}
		filter.Status = parsed
	}

	resp, err := s.tradeFinanceSvc.List(c.Request.Context(), requestUserID(c), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateApplication(c *gin.Context) {
	var req tfdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	application, err := s.tradeFinanceSvc.Update(c.Request.Context(), c.Param("id"), requestUserID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, application)
}

func (s *Server) SubmitApplication(c *gin.Context) {
	application, err := s.tradeFinanceSvc.Submit(c.Request.Context(), c.Param("id"), requestUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, application)
}

func (s *Server) WithdrawApplication(c *gin.Context) {
	application, err := s.tradeFinanceSvc.Withdraw(c.Request.Context(), c.Param("id"), requestUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, application)
}

func (s *Server) GetTradeFinanceSummary(c *gin.Context) {
	summary, err := s.tradeFinanceSvc.Summary(c.Request.Context(), requestUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) AttachApplicationDocument(c *gin.Context) {
	var req tfdomain.AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	document, err := s.tradeFinanceSvc.AttachDocument(c.Request.Context(), c.Param("id"), requestUserID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, document)
}

func (s *Server) ListApplicationDocuments(c *gin.Context) {
	documents, err := s.tradeFinanceSvc.ListDocuments(c.Request.Context(), c.Param("id"), requestUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": documents})
}

func (s *Server) ListApplicationTransactions(c *gin.Context) {
	transactions, err := s.tradeFinanceSvc.ListTransactions(c.Request.Context(), c.Param("id"), requestUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
