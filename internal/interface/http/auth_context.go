package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/searchcal/internal/domain/ingest"
)

const authClaimsKey = "ingest_claims"

func setClaims(c *gin.Context, claims ingest.Claims) {
	c.Set(authClaimsKey, claims)
}

func getClaims(c *gin.Context) (ingest.Claims, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return ingest.Claims{}, false
	}
	claims, ok := value.(ingest.Claims)
	return claims, ok
}
