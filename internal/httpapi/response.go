package httpapi

import (
	"net/http"

	"order-service/internal/apperror"
	"order-service/internal/logger"
	"order-service/internal/utils"

	"go.uber.org/zap"
)

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	utils.WriteJSON(w, code, true, message, data)
}

// writeError maps a classified error onto the envelope. Internal causes are
// logged here and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	utils.WriteJSONError(w, apperror.MessageOf(err), apperror.HTTPStatus(kind))
}

func writeFailure(w http.ResponseWriter, code int, message string) {
	utils.WriteJSONError(w, message, code)
}
