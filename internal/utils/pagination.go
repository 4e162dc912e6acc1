package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/freelance-crm-api/internal/constants"
)

// GetLimitParam extracts the "take N" limit from the request.
// Missing or out-of-range values fall back to the default.
func GetLimitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultCommunicationLimit)))
	if err != nil || limit < 1 || limit > constants.MaxCommunicationLimit {
		return constants.DefaultCommunicationLimit
	}
	return limit
}
