// Package oauth contiene los controllers de /oauth/{clientId}/...: usuarios,
// flujos de credenciales y sesiones. Todas las rutas pasan antes por
// WithClientAuth.
package oauth

import (
	"github.com/dropDatabas3/oauthabl/internal/accounts"
)

// Controllers agrupa todos los controllers del dominio oauth.
type Controllers struct {
	Users    *UsersController
	Flows    *FlowsController
	Sessions *SessionsController
}

// NewControllers crea el agregador de controllers oauth.
func NewControllers(s accounts.Service) *Controllers {
	return &Controllers{
		Users:    NewUsersController(s),
		Flows:    NewFlowsController(s),
		Sessions: NewSessionsController(s),
	}
}
