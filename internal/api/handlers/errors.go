package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/apierr"
)

// respondErr maps an apierr-classified failure onto the matching HTTP status,
// the same Kind->status table the WS layer uses for close codes, so a
// ValidationError is always a 400 and a PersistenceError always a 500
// regardless of which handler produced it.
func respondErr(c *gin.Context, err error) {
	c.JSON(apierr.HTTPStatus(apierr.KindOf(err)), gin.H{"error": err.Error()})
}
