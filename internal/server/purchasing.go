package server

import (
	"net/http"
	"strings"

	purchasingdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreatePurchasingTicket(c *gin.Context) {
	var req purchasingdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.purchasingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) BulkCreatePurchasingTickets(c *gin.Context) {
	var req purchasingdomain.BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.purchasingSvc.BulkCreate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPurchasingTickets(c *gin.Context) {
	var query struct {
		pageQuery
		Status       string `form:"status"`
		SupplierName string `form:"supplier_name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.purchasingSvc.List(c.Request.Context(), purchasingdomain.ListRequest{
		Pagination:   query.pagination(),
		Status:       strings.ToUpper(strings.TrimSpace(query.Status)),
		SupplierName: strings.TrimSpace(query.SupplierName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Tickets, "page_info": resp.PageInfo})
}

func (s *Server) GetPurchasingTicket(c *gin.Context) {
	resp, err := s.purchasingSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionPurchasingDetail(c *gin.Context) {
	var req purchasingdomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.DetailID = strings.TrimSpace(c.Param("id"))

	resp, err := s.purchasingSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelPurchasingTicket(c *gin.Context) {
	var req purchasingdomain.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.TicketID = strings.TrimSpace(c.Param("id"))

	resp, err := s.purchasingSvc.CancelTicket(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPurchasingStatusLogs(c *gin.Context) {
	resp, err := s.purchasingSvc.ListStatusLogs(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isPurchasingValidationError(err error) bool {
	return isAnyOf(err,
		purchasingdomain.ErrInvalidTicketID,
		purchasingdomain.ErrInvalidDetailID,
		purchasingdomain.ErrInvalidName,
		purchasingdomain.ErrInvalidQuantity,
		purchasingdomain.ErrInvalidUnitCost,
		purchasingdomain.ErrEmptyDetails,
	)
}
