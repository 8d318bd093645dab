package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus/internal/auth"
	"campus/internal/campus"
	"campus/internal/store"
)

const cursorHeader = "X-Next-Cursor"

// fail maps a service error onto the JSON error body. Unexpected errors are logged and
// never echoed to the client.
func fail(c *gin.Context, err error) {
	var verr *campus.ValidationError
	var nf *campus.NotFoundError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.FieldMap()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
	case errors.Is(err, campus.ErrAlreadyVoted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bind decodes the JSON body into v, answering 400 on malformed input.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func bindPatch(c *gin.Context) (map[string]any, bool) {
	var patch map[string]any
	if !bind(c, &patch) {
		return nil, false
	}
	return patch, true
}

func listParams(c *gin.Context) (campus.ListParams, bool) {
	p := campus.ListParams{Cursor: c.Query("cursor")}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fail(c, &campus.ValidationError{Fields: []campus.FieldError{{Field: "limit", Message: "limit must be a positive integer"}}})
			return p, false
		}
		p.Limit = n
	}
	return p, true
}

// page writes the items as a plain array and the next cursor as a header.
func page[T any](c *gin.Context, p campus.Page[T], err error) {
	if err != nil {
		fail(c, err)
		return
	}
	if p.NextCursor != "" {
		c.Header(cursorHeader, p.NextCursor)
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	c.JSON(http.StatusOK, p.Items)
}

func ok(c *gin.Context, status int, v any, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, v)
}

func deleted(c *gin.Context, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted", "id": c.Param("id")})
}

func caller(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c)
	return id
}
