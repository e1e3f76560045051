package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// writeCachedJSON writes v with a weak ETag and the given Cache-Control,
// answering 304 when the client already holds the same representation.
func writeCachedJSON(c *gin.Context, v any, cacheControl string) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	sum := sha256.Sum256(b)
	tag := `W/"` + hex.EncodeToString(sum[:16]) + `"`

	c.Header("ETag", tag)
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}

	if matches(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// matches implements the weak comparison of If-None-Match, which may list
// several tags or "*".
func matches(header, tag string) bool {
	if header == "" {
		return false
	}
	bare := strings.TrimPrefix(tag, "W/")
	for _, t := range strings.Split(header, ",") {
		t = strings.TrimSpace(t)
		if t == "*" || strings.TrimPrefix(t, "W/") == bare {
			return true
		}
	}
	return false
}
