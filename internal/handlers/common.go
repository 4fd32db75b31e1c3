package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"modelibr/internal/utils"
)

// errTooLarge marks an upload that exceeded its role's size cap.
var errTooLarge = errors.New("payload exceeds the size limit for this upload kind")

// errMissingFileDestination marks a /files upload with no recognized
// destination query parameter.
var errMissingFileDestination = errors.New("one of modelVersionId or textureSetId is required")

// strconvParseID parses a query-parameter id, mirroring parseID for
// path parameters.
func strconvParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// sendUploadError maps readMultipartFile's sentinel errors to their HTTP
// status, falling back to 400 for ordinary validation failures.
func sendUploadError(c *gin.Context, err error) {
	if errors.Is(err, errTooLarge) {
		utils.SendError(c, 413, "PAYLOAD_TOO_LARGE", err)
		return
	}
	utils.SendValidationError(c, err)
}

// parseID reads a required int64 path parameter.
func parseID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// marshalResult encodes a worker's free-form result payload as the raw JSON
// the queue stores against the job's COMPLETED event.
func marshalResult(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryOptionalInt64(c *gin.Context, name string) *int64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
