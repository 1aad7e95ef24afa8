package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/collabforge/collabforge/internal/api/middleware"
	"github.com/collabforge/collabforge/internal/services"
	"github.com/collabforge/collabforge/internal/utils"
)

// maxUploadSize bounds a single multipart upload request.
const maxUploadSize = 100 << 20 // 100 MB

// FileHandler exposes the file record operations over HTTP.
type FileHandler struct {
	files *services.FileService
}

func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// POST /api/v1/projects/{projectId}/files
// Accepts a multipart form with a single "file" part plus optional
// description, tags (comma-delimited) and folder (id or "root") fields.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	projectID, err := uuid.Parse(r.PathValue("projectId"))
	if err != nil {
		badRequest(w, "Invalid project id")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequest(w, "Invalid file upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, "Could not read uploaded file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	record, err := h.files.Upload(r.Context(), actorID, services.UploadInput{
		ProjectID:    projectID,
		FolderID:     r.FormValue("folder"),
		Data:         data,
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Description:  r.FormValue("description"),
		Tags:         utils.ParseTags(r.FormValue("tags")),
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "File uploaded successfully",
		Data:    map[string]any{"file": record},
	})
}

// GET /api/v1/projects/{projectId}/files?page=&limit=&category=&folderId=
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	projectID, err := uuid.Parse(r.PathValue("projectId"))
	if err != nil {
		badRequest(w, "Invalid project id")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.files.List(r.Context(), actorID, projectID, services.ListOptions{
		Category: r.URL.Query().Get("category"),
		FolderID: r.URL.Query().Get("folderId"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Files retrieved successfully",
		Data:    result,
	})
}

// GET /api/v1/projects/{projectId}/files/categories
func (h *FileHandler) Categories(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	projectID, err := uuid.Parse(r.PathValue("projectId"))
	if err != nil {
		badRequest(w, "Invalid project id")
		return
	}

	categories, err := h.files.Categories(r.Context(), actorID, projectID)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Categories retrieved successfully",
		Data:    map[string]any{"categories": categories},
	})
}

// GET /api/v1/files/{fileId}
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		badRequest(w, "Invalid file id")
		return
	}

	detail, err := h.files.Get(r.Context(), actorID, fileID)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File retrieved successfully",
		Data:    map[string]any{"file": detail},
	})
}

// GET /api/v1/files/{fileId}/download
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		badRequest(w, "Invalid file id")
		return
	}

	info, err := h.files.Download(r.Context(), actorID, fileID)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Download URL generated successfully",
		Data:    info,
	})
}

// PATCH /api/v1/files/{fileId}/rename
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		badRequest(w, "Invalid file id")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	if err := h.files.Rename(r.Context(), actorID, fileID, body.Name); err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File renamed successfully",
	})
}

// PATCH /api/v1/files/{fileId}
// Updates description and/or tags. Tags may be a JSON array or a single
// comma-delimited string.
func (h *FileHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		badRequest(w, "Invalid file id")
		return
	}

	var body struct {
		Description *string         `json:"description"`
		Tags        json.RawMessage `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	update := services.MetadataUpdate{Description: body.Description}
	if len(body.Tags) > 0 {
		var tagList []string
		if err := json.Unmarshal(body.Tags, &tagList); err == nil {
			update.Tags = tagList
		} else {
			var tagStr string
			if err := json.Unmarshal(body.Tags, &tagStr); err != nil {
				badRequest(w, "Invalid tags value")
				return
			}
			update.Tags = utils.ParseTags(tagStr)
		}
	}

	record, err := h.files.UpdateMetadata(r.Context(), actorID, fileID, update)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File updated successfully",
		Data:    map[string]any{"file": record},
	})
}

// DELETE /api/v1/files/{fileId}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		badRequest(w, "Invalid file id")
		return
	}

	if err := h.files.Delete(r.Context(), actorID, fileID); err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File deleted successfully",
	})
}

// POST /api/v1/projects/{projectId}/files/bulk-delete
func (h *FileHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	projectID, err := uuid.Parse(r.PathValue("projectId"))
	if err != nil {
		badRequest(w, "Invalid project id")
		return
	}

	var body struct {
		FileIDs []string `json:"fileIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	results, err := h.files.BulkDelete(r.Context(), actorID, projectID, body.FileIDs)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Bulk delete completed",
		Data:    map[string]any{"results": results},
	})
}

func unauthorized(w http.ResponseWriter) {
	utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
		Success: false,
		Message: "Authentication required",
	})
}

func badRequest(w http.ResponseWriter, message string) {
	utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
		Success: false,
		Message: message,
	})
}
