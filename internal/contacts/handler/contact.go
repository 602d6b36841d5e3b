package handler

import (
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"contactfix/internal/contacts/service"
	"contactfix/internal/contacts/validator"
	apperrors "contactfix/pkg/errors"
	httputil "contactfix/pkg/http"
	"contactfix/pkg/logger"
	"contactfix/pkg/model"
)

type ContactHandler struct {
	service   service.ContactService
	validator *validator.ContactValidator
	log       *logger.Logger
}

func NewContactHandler(service service.ContactService, validator *validator.ContactValidator, log *logger.Logger) *ContactHandler {
	return &ContactHandler{
		service:   service,
		validator: validator,
		log:       log,
	}
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var contact model.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), &contact); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, contact); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ContactHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}
	onlyNeedsFix, err := httputil.ExtractBool(r, "needs_fix")
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	contacts, totalCount, err := h.service.GetAll(r.Context(), limit, offset, onlyNeedsFix)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, contacts, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *ContactHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	contact, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, contact); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ContactHandler) GetByPhone(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetByPhone", err)
		return
	}

	contacts, totalCount, err := h.service.FindByPhone(r.Context(), ps.ByName("phone"), limit, offset)
	if err != nil {
		h.writeError(w, "GetByPhone", err)
		return
	}

	if err := httputil.WritePaginated(w, contacts, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetByPhone", "operation", "WritePaginated", "error", err)
	}
}

func (h *ContactHandler) Preview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	result, err := h.service.Preview(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Preview", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Preview", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ContactHandler) Fix(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	result, err := h.service.Fix(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Fix", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Fix", "operation", "WriteSuccess", "error", err)
	}
}

// FixBatch repairs the listed contacts, or every contact needing it when the
// body is empty or lists no ids.
func (h *ContactHandler) FixBatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BatchFixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "FixBatch", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.validator.ValidateBatchRequest(&req); err != nil {
		h.writeError(w, "FixBatch", apperrors.Validation("Batch request validation failed", map[string]any{
			"errors": err,
		}))
		return
	}

	result, err := h.service.FixBatch(r.Context(), req.IDs)
	if err != nil {
		if result != nil {
			err = withPartialResult(err, result)
		}
		h.writeError(w, "FixBatch", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "FixBatch", "operation", "WriteSuccess", "error", err)
	}
}

// withPartialResult reports the contacts already processed by an interrupted
// batch under the "partial_result" detail.
func withPartialResult(err error, result *model.BatchResult) error {
	appErr := *apperrors.AsAppError(err)
	details := maps.Clone(appErr.Details)
	if details == nil {
		details = map[string]any{}
	}
	details["partial_result"] = result
	appErr.Details = details
	return &appErr
}

func (h *ContactHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
