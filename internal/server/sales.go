package server

import (
	"net/http"
	"strings"

	salesdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateSalesOrder(c *gin.Context) {
	var req salesdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.salesSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) BulkCreateSalesOrders(c *gin.Context) {
	var req salesdomain.BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.salesSvc.BulkCreate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSalesOrders(c *gin.Context) {
	var query struct {
		pageQuery
		Status       string `form:"status"`
		CustomerName string `form:"customer_name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.salesSvc.List(c.Request.Context(), salesdomain.ListRequest{
		Pagination:   query.pagination(),
		Status:       strings.ToUpper(strings.TrimSpace(query.Status)),
		CustomerName: strings.TrimSpace(query.CustomerName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Orders, "page_info": resp.PageInfo})
}

func (s *Server) GetSalesOrder(c *gin.Context) {
	resp, err := s.salesSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionSalesDetail(c *gin.Context) {
	var req salesdomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.DetailID = strings.TrimSpace(c.Param("id"))

	resp, err := s.salesSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSalesOrder(c *gin.Context) {
	var req salesdomain.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.OrderID = strings.TrimSpace(c.Param("id"))

	resp, err := s.salesSvc.CancelOrder(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSalesStatusLogs(c *gin.Context) {
	resp, err := s.salesSvc.ListStatusLogs(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isSalesValidationError(err error) bool {
	return isAnyOf(err,
		salesdomain.ErrInvalidOrderID,
		salesdomain.ErrInvalidDetailID,
		salesdomain.ErrInvalidName,
		salesdomain.ErrInvalidQuantity,
		salesdomain.ErrInvalidUnitPrice,
		salesdomain.ErrEmptyLines,
	)
}
