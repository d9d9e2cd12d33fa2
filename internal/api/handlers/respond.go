package handlers

import (
	"net/http"
	"strconv"

	"example.com/backstage/dashboard/internal/gateway"
	"example.com/backstage/dashboard/internal/panels"
	"example.com/backstage/dashboard/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Op    string `json:"op,omitempty"`
	Kind  string `json:"kind"`
}

// statusFor maps a panel failure to the HTTP status shown to the browser
func statusFor(err error) (int, ErrorResponse) {
	var validation *panels.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, ErrorResponse{Error: validation.Message, Op: validation.Op, Kind: "validation"}
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		status := http.StatusBadGateway
		if gwErr.Business() {
			status = http.StatusConflict
		}
		return status, ErrorResponse{Error: gwErr.UserMessage(), Op: gwErr.Op, Kind: string(gwErr.Kind)}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "internal"}
}

func fail(c *gin.Context, tracer tracing.Tracer, txn *newrelic.Transaction, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		tracer.RecordError(txn, err)
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	log.Warn().Err(err).Str("path", c.FullPath()).Msg("invalid request")
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "request"})
}

func intParam(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, errors.Errorf("%s must be an integer, got %q", name, c.Param(name))
	}
	return v, nil
}
