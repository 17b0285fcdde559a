package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"postsync/internal/adapters/httpapi/middleware"
	"postsync/internal/core/outcome"
	postEntity "postsync/internal/core/post"
)

//go:embed syncschema.json
var syncSchemaJSON []byte

const (
	syncSchemaURL = "https://postsync.local/schemas/sync-outcome.json"
	maxSyncBody   = 64 << 10
)

func compileSyncSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(syncSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse sync schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(syncSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add sync schema: %w", err)
	}
	return c.Compile(syncSchemaURL)
}

type SyncController struct {
	oc     OutcomeUseCase
	schema *jsonschema.Schema
	logger *zap.Logger
	now    func() time.Time
}

func NewSyncController(oc OutcomeUseCase, schema *jsonschema.Schema, logger *zap.Logger) *SyncController {
	return &SyncController{oc: oc, schema: schema, logger: logger, now: time.Now}
}

// ReportOutcome is the extension's callback. The body is checked against
// the schema before it is decoded.
func (ctl *SyncController) ReportOutcome(c *gin.Context) {
	receivedAt := ctl.now().UTC()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSyncBody+1))
	if err != nil || len(body) > maxSyncBody {
		writeError(c, fmt.Errorf("%w: unreadable or oversized body", postEntity.ErrValidation))
		return
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		writeError(c, fmt.Errorf("%w: body is not valid JSON", postEntity.ErrValidation))
		return
	}
	if err := ctl.schema.Validate(inst); err != nil {
		ctl.logger.Info("🚫 Rejected outcome payload", zap.Error(err))
		writeError(c, fmt.Errorf("%w: %s", postEntity.ErrValidation, schemaMessage(err)))
		return
	}

	var payload outcome.Payload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeError(c, fmt.Errorf("%w: %v", postEntity.ErrValidation, err))
		return
	}

	req, err := payload.Decode(receivedAt)
	if err != nil {
		writeError(c, err)
		return
	}

	// a bearer token stands in for userId, and must agree with it when both are sent
	if userID, ok := middleware.UserID(c); ok {
		tokenOwner, err := uuid.FromString(userID)
		if err == nil {
			if req.Target.ClaimedOwner != nil && *req.Target.ClaimedOwner != tokenOwner {
				writeError(c, postEntity.ErrForbidden)
				return
			}
			req.Target.ClaimedOwner = &tokenOwner
		}
	}

	res, err := ctl.oc.ReportOutcome(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// schemaMessage keeps the innermost line of a schema error, which names the
// offending field.
func schemaMessage(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return strings.TrimPrefix(l, "- ")
		}
	}
	return "payload does not match the outcome schema"
}
