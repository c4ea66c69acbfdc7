package llm

import (
	"errors"

	"github.com/openai/openai-go"
	"google.golang.org/genai"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

// Classify turns a chat provider error into an ExternalServiceError with a
// retryable flag. Errors already classified are returned unchanged.
func Classify(service string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		e := errx.External(err, service, errx.RetryableStatus(oaiErr.StatusCode))
		e.Status = oaiErr.StatusCode
		return e
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		e := errx.External(err, service, errx.RetryableStatus(genaiErr.Code))
		e.Status = genaiErr.Code
		return e
	}
	return errx.FromTransport(service, err)
}
