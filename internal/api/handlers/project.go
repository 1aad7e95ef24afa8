package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/collabforge/collabforge/internal/api/middleware"
	"github.com/collabforge/collabforge/internal/services"
	"github.com/collabforge/collabforge/internal/utils"
)

// ProjectHandler exposes the project lifecycle operations the file subsystem
// depends on.
type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// POST /api/v1/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	project, err := h.projects.Create(r.Context(), actorID, body.Name, body.Description)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Project created successfully",
		Data:    map[string]any{"project": project},
	})
}

// GET /api/v1/projects/{projectId}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	project, err := h.projects.Get(r.Context(), actorID, projectID)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Project retrieved successfully",
		Data:    map[string]any{"project": project},
	})
}

// POST /api/v1/projects/{projectId}/collaborators
func (h *ProjectHandler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
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
		UserID      string   `json:"userId"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		badRequest(w, "Invalid user id")
		return
	}

	collab, err := h.projects.AddCollaborator(r.Context(), actorID, projectID, userID, body.Role, body.Permissions)
	if err != nil {
		serviceError(w, err)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Collaborator added successfully",
		Data:    map[string]any{"collaborator": collab},
	})
}
