// attachments.go — построение вложения Google Drive для тонких клиентов.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/contract"
	apierrors "github.com/h4ck3r-coding/csc-portal/content-module/internal/api/errors"
)

// BuildDriveAttachment — POST /api/v1/attachments/drive.
func (h *APIHandler) BuildDriveAttachment(w http.ResponseWriter, r *http.Request) {
	var req contract.DriveAttachmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize)).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	att, err := h.attachments.BuildDriveAttachment(r.Context(), req.Name, req.URL)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contract.AttachmentResponse{Success: true, Attachment: &att})
}
