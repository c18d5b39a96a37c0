package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 6

// pageParams reads ?page= and ?limit= with the defaults the frontend expects.
func pageParams(c *gin.Context) (offset, limit int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	return (page - 1) * limit, limit
}

// paginated wraps a page of results with the total count.
func paginated(count int64, results interface{}) gin.H {
	return gin.H{
		"count":   count,
		"results": results,
	}
}
