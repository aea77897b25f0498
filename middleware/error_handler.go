package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/logger"
)

// ErrorHandler renders errors attached to the gin context as a structured
// JSON body. AppError types map to their own HTTP status; anything else is
// treated as an internal error and its detail is withheld from the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		log := logger.GetLogger()

		if appErr, ok := err.(*apperrors.AppError); ok {
			log.Warnw("Request failed",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"type", string(appErr.Type),
				"message", appErr.Message,
				"detail", appErr.Detail,
				"error", appErr.Raw)

			response := gin.H{
				"type":    string(appErr.Type),
				"message": appErr.Message,
				"code":    strconv.Itoa(appErr.HTTPStatus),
			}
			// 5xx detail stays server-side; client-fault detail is safe to show.
			if appErr.Detail != "" && appErr.HTTPStatus < 500 {
				response["details"] = appErr.Detail
			}
			c.JSON(appErr.HTTPStatus, response)
			return
		}

		if c.Errors.Last().Type == gin.ErrorTypeBind {
			log.Warnw("Request binding failed",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"error", err)
			c.JSON(400, gin.H{
				"type":    string(apperrors.ValidationError),
				"message": "Failed to bind request",
				"code":    "400",
			})
			return
		}

		log.Errorw("Unexpected server error",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", err)
		c.JSON(500, gin.H{
			"type":    string(apperrors.ServerError),
			"message": "Internal Server Error",
			"code":    "500",
		})
	}
}
