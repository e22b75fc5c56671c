// Package admin contiene los controllers de la API de administración (/clients).
package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/oauthabl/internal/http/errors"
	"github.com/dropDatabas3/oauthabl/internal/http/helpers"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	tokens "github.com/dropDatabas3/oauthabl/internal/security/token"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// secretBytes es la entropía del secreto generado (base64url sin padding).
const secretBytes = 32

// ClientStore es lo que el controller necesita del repositorio de clientes.
type ClientStore interface {
	Create(ctx context.Context, c store.Client) error
	Get(ctx context.Context, clientID string) (store.Client, error)
	List(ctx context.Context) ([]store.ClientSummary, error)
	Update(ctx context.Context, clientID string, updates map[string]any) (store.Client, error)
	Delete(ctx context.Context, clientID string) error
}

// ClientsController maneja las rutas /clients
type ClientsController struct {
	clients ClientStore
}

// NewClientsController crea un nuevo controller de clients.
func NewClientsController(clients ClientStore) *ClientsController {
	return &ClientsController{clients: clients}
}

// ListClients maneja GET /clients
func (c *ClientsController) ListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("ClientsController.ListClients"),
	)

	list, err := c.clients.List(ctx)
	if err != nil {
		log.Error("list failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, list)
}

// CreateClient maneja POST /clients
//
// El body es libre: name más cualquier campo extra. id y secret los genera el
// servidor e ignoran lo que venga en el body.
func (c *ClientsController) CreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("ClientsController.CreateClient"),
	)

	body := map[string]any{}
	if !helpers.ReadJSON(w, r, &body) {
		return
	}
	name, _ := body["name"].(string)
	if strings.TrimSpace(name) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("name is required"))
		return
	}

	secret, err := tokens.GenerateOpaqueToken(secretBytes)
	if err != nil {
		log.Error("secret generation failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	client := store.Client{ID: tokens.NewID(), Secret: secret}.Merge(body)

	if err := c.clients.Create(ctx, client); err != nil {
		log.Error("create failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	log.Info("client created", logger.ClientID(client.ID))
	helpers.WriteJSON(w, http.StatusCreated, client)
}

// GetClient maneja GET /clients/{clientId}
func (c *ClientsController) GetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "clientId")

	client, err := c.clients.Get(ctx, clientID)
	if err != nil {
		if !store.IsNotFound(err) {
			logger.From(ctx).Error("get failed",
				logger.Layer("controller"),
				logger.Op("ClientsController.GetClient"),
				logger.ClientID(clientID),
				logger.Err(err),
			)
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, client)
}

// UpdateClient maneja PATCH /clients/{clientId}
func (c *ClientsController) UpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "clientId")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("ClientsController.UpdateClient"),
		logger.ClientID(clientID),
	)

	updates := map[string]any{}
	if !helpers.ReadJSON(w, r, &updates) {
		return
	}
	if name, ok := updates["name"]; ok {
		if s, isStr := name.(string); !isStr || strings.TrimSpace(s) == "" {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("name must be a non-empty string"))
			return
		}
	}

	client, err := c.clients.Update(ctx, clientID, updates)
	if err != nil {
		if !store.IsNotFound(err) {
			log.Error("update failed", logger.Err(err))
		}
		httperrors.WriteError(w, err)
		return
	}

	log.Info("client updated")
	helpers.WriteJSON(w, http.StatusOK, client)
}

// DeleteClient maneja DELETE /clients/{clientId}
func (c *ClientsController) DeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "clientId")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("ClientsController.DeleteClient"),
		logger.ClientID(clientID),
	)

	if err := c.clients.Delete(ctx, clientID); err != nil {
		if !store.IsNotFound(err) {
			log.Error("delete failed", logger.Err(err))
		}
		httperrors.WriteError(w, err)
		return
	}

	log.Info("client deleted")
	w.WriteHeader(http.StatusNoContent)
}
