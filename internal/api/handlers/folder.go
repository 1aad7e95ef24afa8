package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/collabforge/collabforge/internal/api/middleware"
	"github.com/collabforge/collabforge/internal/services"
	"github.com/collabforge/collabforge/internal/utils"
)

// FolderHandler exposes the folder tree operations over HTTP.
type FolderHandler struct {
	folders *services.FolderService
}

func NewFolderHandler(folders *services.FolderService) *FolderHandler {
	return &FolderHandler{folders: folders}
}

// POST /api/v1/folders
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var body struct {
		Name      string `json:"name"`
		ParentID  string `json:"parentId"`
		ProjectID string `json:"projectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	projectID, err := uuid.Parse(body.ProjectID)
	if err != nil {
		badRequest(w, "Name and project ID are required")
		return
	}

	var parentID *uuid.UUID
	if body.ParentID != "" && body.ParentID != "root" {
		id, err := uuid.Parse(body.ParentID)
		if err != nil {
			badRequest(w, "Invalid parent id")
			return
		}
		parentID = &id
	}

	folder, err := h.folders.Create(r.Context(), actorID, projectID, body.Name, parentID)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Folder created successfully",
		Data:    map[string]any{"folder": folder},
	})
}

// GET /api/v1/folders/project/{projectId}
// Returns the dual representation: nested hierarchy plus the flattened,
// path-sorted list with the synthetic root first.
func (h *FolderHandler) Tree(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ActorID(r); !ok {
		unauthorized(w)
		return
	}

	projectID, err := uuid.Parse(r.PathValue("projectId"))
	if err != nil {
		badRequest(w, "Invalid project id")
		return
	}

	tree, err := h.folders.Tree(r.Context(), projectID)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Folders retrieved successfully",
		Data:    map[string]any{"folders": tree, "count": tree.Count},
	})
}

// GET /api/v1/folders/{folderId}/contents?projectId=
func (h *FolderHandler) Contents(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	projectID, err := uuid.Parse(r.URL.Query().Get("projectId"))
	if err != nil {
		badRequest(w, "Project ID required")
		return
	}

	subfolders, err := h.folders.Contents(r.Context(), actorID, projectID, r.PathValue("folderId"))
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Folder contents retrieved successfully",
		Data:    map[string]any{"subfolders": subfolders},
	})
}

// PATCH /api/v1/folders/{folderId}/rename
func (h *FolderHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	folderID, err := uuid.Parse(r.PathValue("folderId"))
	if err != nil {
		badRequest(w, "Invalid folder id")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	if err := h.folders.Rename(r.Context(), actorID, folderID, body.Name); err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Folder renamed successfully",
	})
}

// DELETE /api/v1/folders/{folderId}
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	folderID, err := uuid.Parse(r.PathValue("folderId"))
	if err != nil {
		badRequest(w, "Invalid folder id")
		return
	}

	if err := h.folders.Delete(r.Context(), actorID, folderID); err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Folder deleted successfully",
	})
}
