package server

import (
	"net/http"
	"strings"

	inventorydomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetInventory(c *gin.Context) {
	resp, err := s.inventorySvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("variant_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInventoryBySKU(c *gin.Context) {
	resp, err := s.inventorySvc.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLedger(c *gin.Context) {
	var query struct {
		pageQuery
		Bucket string `form:"bucket"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.ListLedger(c.Request.Context(), inventorydomain.ListLedgerRequest{
		Pagination: query.pagination(),
		VariantID:  strings.TrimSpace(c.Param("variant_id")),
		Bucket:     strings.ToUpper(strings.TrimSpace(query.Bucket)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Entries, "page_info": resp.PageInfo})
}

func (s *Server) AdjustInventory(c *gin.Context) {
	var req inventorydomain.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.inventorySvc.Adjust(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateThresholds(c *gin.Context) {
	var req inventorydomain.ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.inventorySvc.UpdateThresholds(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// BulkAdjustInventory answers 200 even when some items fail; the envelope
// lists successes and failures in input order.
func (s *Server) BulkAdjustInventory(c *gin.Context) {
	var req inventorydomain.BulkAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.inventorySvc.BulkAdjust(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isInventoryValidationError(err error) bool {
	return isAnyOf(err,
		inventorydomain.ErrInvalidQuantity,
		inventorydomain.ErrInvalidBucket,
		inventorydomain.ErrInvalidOperation,
		inventorydomain.ErrInvalidThresholds,
		inventorydomain.ErrInvalidVariantID,
		inventorydomain.ErrInvalidAdjustMode,
		inventorydomain.ErrEmptyBatch,
	)
}
