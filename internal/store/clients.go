package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dropDatabas3/oauthabl/internal/kv"
)

// Client es un tenant. El valor guardado es {"id","secret","name",...extra};
// la metadata duplica name y secret para listar y autenticar sin leer el valor.
type Client struct {
	ID     string
	Secret string
	Name   string
	Extra  map[string]any
}

// ClientSummary es la vista de listado.
type ClientSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// ClientMetadata es la metadata de client:<id>.
type ClientMetadata struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

var reservedClientFields = []string{"id", "secret", "name"}

// MarshalJSON aplana Extra junto a los campos fijos.
func (c Client) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		m[k] = v
	}
	m["id"] = c.ID
	m["secret"] = c.Secret
	m["name"] = c.Name
	return json.Marshal(m)
}

func (c *Client) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	c.ID, _ = m["id"].(string)
	c.Secret, _ = m["secret"].(string)
	c.Name, _ = m["name"].(string)
	for _, k := range reservedClientFields {
		delete(m, k)
	}
	c.Extra = nil
	if len(m) > 0 {
		c.Extra = m
	}
	return nil
}

// Merge aplica updates sobre c. id y secret no se pueden cambiar.
func (c Client) Merge(updates map[string]any) Client {
	out := Client{ID: c.ID, Secret: c.Secret, Name: c.Name}
	if len(c.Extra) > 0 || len(updates) > 0 {
		out.Extra = make(map[string]any, len(c.Extra)+len(updates))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	for k, v := range updates {
		switch k {
		case "id", "secret":
			continue
		case "name":
			if s, ok := v.(string); ok {
				out.Name = s
			}
		default:
			out.Extra[k] = v
		}
	}
	if len(out.Extra) == 0 {
		out.Extra = nil
	}
	return out
}

// ClientRepository gestiona client:<id>.
type ClientRepository struct {
	kv *kv.Gateway
}

// NewClientRepository crea el repositorio sobre el gateway.
func NewClientRepository(g *kv.Gateway) *ClientRepository {
	return &ClientRepository{kv: g}
}

// Create guarda un cliente nuevo. Si el id ya existe retorna ErrConflict.
func (r *ClientRepository) Create(ctx context.Context, c Client) error {
	if c.ID == "" || c.Secret == "" {
		return fmt.Errorf("%w: client id and secret are required", ErrInvalidInput)
	}
	err := r.put(ctx, c, kv.PutOptions{IfAbsent: r.kv.Conditional()})
	if errors.Is(err, kv.ErrKeyExists) {
		return ErrConflict
	}
	return err
}

// Get retorna el cliente completo.
func (r *ClientRepository) Get(ctx context.Context, clientID string) (Client, error) {
	c, err := kv.GetJSON[Client](ctx, r.kv, ClientKey(clientID))
	if errors.Is(err, kv.ErrNotFound) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// Credentials retorna la metadata del cliente (name + secret) para autenticar.
func (r *ClientRepository) Credentials(ctx context.Context, clientID string) (ClientMetadata, error) {
	_, raw, err := r.kv.GetWithMetadata(ctx, ClientKey(clientID))
	if errors.Is(err, kv.ErrNotFound) {
		return ClientMetadata{}, ErrNotFound
	}
	if err != nil {
		return ClientMetadata{}, err
	}
	meta, ok, err := kv.DecodeMetadata[ClientMetadata](raw)
	if err != nil {
		return ClientMetadata{}, fmt.Errorf("store: decode client metadata: %w", err)
	}
	if !ok {
		// Sin metadata no hay secreto contra el cual comparar.
		return ClientMetadata{}, ErrNotFound
	}
	return meta, nil
}

// List retorna todos los clientes desde la metadata, ordenados por id.
func (r *ClientRepository) List(ctx context.Context) ([]ClientSummary, error) {
	out := []ClientSummary{}
	for k, err := range r.kv.List(ctx, PrefixClient) {
		if err != nil {
			return nil, err
		}
		meta, _, err := kv.DecodeMetadata[ClientMetadata](k.Metadata)
		if err != nil {
			return nil, fmt.Errorf("store: decode client metadata %q: %w", k.Name, err)
		}
		out = append(out, ClientSummary{
			ID:     TrimPrefix(k.Name, PrefixClient),
			Name:   meta.Name,
			Secret: meta.Secret,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update aplica updates sobre un cliente existente y retorna el resultado.
func (r *ClientRepository) Update(ctx context.Context, clientID string, updates map[string]any) (Client, error) {
	cur, err := r.Get(ctx, clientID)
	if err != nil {
		return Client{}, err
	}
	next := cur.Merge(updates)
	if err := r.put(ctx, next, kv.PutOptions{}); err != nil {
		return Client{}, err
	}
	return next, nil
}

// Delete borra el cliente. ErrNotFound si no existía.
// Los usuarios y sesiones del cliente no se borran.
func (r *ClientRepository) Delete(ctx context.Context, clientID string) error {
	if _, err := r.kv.Get(ctx, ClientKey(clientID)); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return r.kv.Delete(ctx, ClientKey(clientID))
}

func (r *ClientRepository) put(ctx context.Context, c Client, opts kv.PutOptions) error {
	return kv.PutJSON(ctx, r.kv, ClientKey(c.ID), c, ClientMetadata{Name: c.Name, Secret: c.Secret}, opts)
}
