package server

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// streamRequest is the validated input of the trades stream.
// Field order is the order failures are reported in.
type streamRequest struct {
	Accept   string `validate:"eventstream"`
	MarketID string `validate:"required"`
}

type fieldRule struct {
	key     string
	message string
}

var fieldRules = map[string]fieldRule{
	"Accept":   {key: "accept", message: "Accept: text/event-stream required"},
	"MarketID": {key: "marketId", message: "marketId is required"},
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("eventstream", func(fl validator.FieldLevel) bool {
		return acceptsEventStream(fl.Field().String())
	})
	return v
}

// acceptsEventStream reports whether an Accept header lists text/event-stream.
func acceptsEventStream(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "text/event-stream" {
			return true
		}
	}
	return false
}

// validateStream checks a stream request and returns an INVALID_REQUEST error.
// The message names the first failing field; Details maps every failing field
// to its message.
func (s *Server) validateStream(req streamRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		details := make(map[string]string, len(verrs))
		var first string
		for _, fe := range verrs {
			rule, ok := fieldRules[fe.Field()]
			if !ok {
				rule = fieldRule{key: fe.Field(), message: fe.Error()}
			}
			details[rule.key] = rule.message
			if first == "" {
				first = rule.message
			}
		}
		e := NewError(CodeInvalidRequest, http.StatusBadRequest, first)
		e.Details = details
		return e
	}
	return WrapError(CodeInternal, http.StatusInternalServerError, "validation failed", err)
}
