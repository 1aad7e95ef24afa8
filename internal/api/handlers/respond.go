package handlers

import (
	"errors"
	"net/http"

	"github.com/collabforge/collabforge/internal/services"
	"github.com/collabforge/collabforge/internal/utils"
)

// serviceError translates a service-layer error into the matching HTTP
// response. Sentinel errors map to client statuses; anything else becomes a
// generic 500 so internal details never reach the client.
func serviceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "An unexpected error occurred. Please try again later."

	switch {
	case errors.Is(err, services.ErrForbidden):
		status, message = http.StatusForbidden, "Permission denied"
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "The requested resource could not be found"
	case errors.Is(err, services.ErrDuplicateName):
		status, message = http.StatusConflict, "A folder with this name already exists in this location"
	case errors.Is(err, services.ErrFolderNotEmpty):
		status, message = http.StatusBadRequest, "Folder is not empty"
	case errors.Is(err, services.ErrQuotaExceeded):
		status, message = http.StatusBadRequest, "Storage quota exceeded"
	case errors.Is(err, services.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUpstream):
		status, message = http.StatusBadGateway, "Storage backend request failed"
	}

	utils.JSONResponse(w, status, utils.Payload{Success: false, Message: message})
}
