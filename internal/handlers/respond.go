package handlers

import (
	"github.com/gin-gonic/gin"

	"modelibr/internal/apperr"
	"modelibr/internal/utils"
)

// sendAppError translates a typed apperr.Error (or any error) into the
// standard response envelope, using the HTTP status its Code maps to.
func sendAppError(c *gin.Context, err error) {
	utils.SendError(c, apperr.HTTPStatus(err), string(apperr.CodeOf(err)), err)
}
