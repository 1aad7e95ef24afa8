package api

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/collabforge/collabforge/internal/api/handlers"
	"github.com/collabforge/collabforge/internal/api/middleware"
	"github.com/collabforge/collabforge/internal/config"
	"github.com/collabforge/collabforge/internal/services"
)

// SetupRouter wires the services and handlers onto the HTTP mux. Everything
// under /api/v1 sits behind the auth middleware.
func SetupRouter(db *gorm.DB, store services.ObjectStore) http.Handler {
	fileHandler := handlers.NewFileHandler(services.NewFileService(db, store))
	folderHandler := handlers.NewFolderHandler(services.NewFolderService(db))
	projectHandler := handlers.NewProjectHandler(services.NewProjectService(db, config.Envs.DefaultMaxProjectBytes))

	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()

	protectedMux.HandleFunc("POST /projects", projectHandler.Create)
	protectedMux.HandleFunc("GET /projects/{projectId}", projectHandler.Get)
	protectedMux.HandleFunc("POST /projects/{projectId}/collaborators", projectHandler.AddCollaborator)

	protectedMux.HandleFunc("POST /projects/{projectId}/files", fileHandler.Upload)
	protectedMux.HandleFunc("GET /projects/{projectId}/files", fileHandler.List)
	protectedMux.HandleFunc("GET /projects/{projectId}/files/categories", fileHandler.Categories)
	protectedMux.HandleFunc("POST /projects/{projectId}/files/bulk-delete", fileHandler.BulkDelete)

	protectedMux.HandleFunc("GET /files/{fileId}", fileHandler.Get)
	protectedMux.HandleFunc("GET /files/{fileId}/download", fileHandler.Download)
	protectedMux.HandleFunc("PATCH /files/{fileId}/rename", fileHandler.Rename)
	protectedMux.HandleFunc("PATCH /files/{fileId}", fileHandler.Update)
	protectedMux.HandleFunc("DELETE /files/{fileId}", fileHandler.Delete)

	protectedMux.HandleFunc("POST /folders", folderHandler.Create)
	protectedMux.HandleFunc("GET /folders/project/{projectId}", folderHandler.Tree)
	protectedMux.HandleFunc("GET /folders/{folderId}/contents", folderHandler.Contents)
	protectedMux.HandleFunc("PATCH /folders/{folderId}/rename", folderHandler.Rename)
	protectedMux.HandleFunc("DELETE /folders/{folderId}", folderHandler.Delete)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.AuthMiddleware(protectedMux),
		),
	)

	log.Info().Msg("Router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}
