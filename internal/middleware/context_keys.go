package middleware

import "github.com/gin-gonic/gin"

// accountIDKey is the key used to store the webhook sender's account ID in
// the request context.
const accountIDKey = contextKey("accountID")

// GetAccountIDFromContext retrieves the authenticated account ID from the Gin
// context. It returns the account ID and a boolean indicating if it was found.
func GetAccountIDFromContext(c *gin.Context) (string, bool) {
	accountIDVal := c.Request.Context().Value(accountIDKey)
	if accountIDVal == nil {
		return "", false
	}

	accountID, ok := accountIDVal.(string)
	if !ok {
		return "", false
	}
	return accountID, true
}
