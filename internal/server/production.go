package server

import (
	"net/http"
	"strings"

	productiondomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateProductionTicket(c *gin.Context) {
	var req productiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.productionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) BulkCreateProductionTickets(c *gin.Context) {
	var req productiondomain.BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.productionSvc.BulkCreate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProductionTickets(c *gin.Context) {
	var query struct {
		pageQuery
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productionSvc.List(c.Request.Context(), productiondomain.ListRequest{
		Pagination: query.pagination(),
		Status:     strings.ToUpper(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Tickets, "page_info": resp.PageInfo})
}

func (s *Server) GetProductionTicket(c *gin.Context) {
	resp, err := s.productionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionProductionDetail(c *gin.Context) {
	var req productiondomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.DetailID = strings.TrimSpace(c.Param("id"))

	resp, err := s.productionSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelProductionTicket(c *gin.Context) {
	var req productiondomain.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.TicketID = strings.TrimSpace(c.Param("id"))

	resp, err := s.productionSvc.CancelTicket(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProductionStatusLogs(c *gin.Context) {
	resp, err := s.productionSvc.ListStatusLogs(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isProductionValidationError(err error) bool {
	return isAnyOf(err,
		productiondomain.ErrInvalidTicketID,
		productiondomain.ErrInvalidDetailID,
		productiondomain.ErrInvalidName,
		productiondomain.ErrInvalidQuantity,
		productiondomain.ErrEmptyDetails,
	)
}
