package webhook

import (
	"errors"
	"net/http"

	"paygate/internal/types"
)

// Response maps a Handle outcome to the status code and plain-text reason
// returned to the processor. Internal failures get a fixed message.
func Response(res *Result, err error) (int, string) {
	if err == nil {
		if res == nil {
			return http.StatusOK, "OK"
		}
		return http.StatusOK, res.Message()
	}

	code := types.CodeOf(err)
	if code == "" {
		return http.StatusInternalServerError, "Internal error"
	}
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		return status, "Internal error"
	}

	var appErr *types.AppError
	errors.As(err, &appErr)
	return status, appErr.Message
}
