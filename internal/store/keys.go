package store

import "strings"

// Prefijos del keyspace. Toda entidad vive bajo uno de ellos; el resto de la
// clave se arma con ":" como separador.
const (
	PrefixClient   = "client:"
	PrefixUser     = "user:"
	PrefixUsername = "username:"
	PrefixEmail    = "email:"
	PrefixSession  = "session:"

	codeSuffix = "code:"
)

// ClientKey = client:<clientId>
func ClientKey(clientID string) string { return PrefixClient + clientID }

// UserKey = user:<clientId>:<userId>
func UserKey(clientID, userID string) string { return UserPrefix(clientID) + userID }

// UserPrefix lista los usuarios de un cliente.
func UserPrefix(clientID string) string { return PrefixUser + clientID + ":" }

// UsernameKey = username:<clientId>:<username>
func UsernameKey(clientID, username string) string {
	return PrefixUsername + clientID + ":" + username
}

// EmailKey = email:<clientId>:<email>
func EmailKey(clientID, email string) string {
	return PrefixEmail + clientID + ":" + email
}

// CodeKey = <kind>code:<clientId>:<userId>
func CodeKey(kind, clientID, userID string) string {
	return kind + codeSuffix + clientID + ":" + userID
}

// SessionKey = session:<clientId>:<userId>:<sessionId>
func SessionKey(clientID, userID, sessionID string) string {
	return SessionPrefix(clientID, userID) + sessionID
}

// SessionPrefix lista las sesiones de un usuario. Termina en ":" para no
// mezclar usuarios cuyo id es prefijo de otro.
func SessionPrefix(clientID, userID string) string {
	return PrefixSession + clientID + ":" + userID + ":"
}

// TrimPrefix retorna el último segmento de key bajo prefix.
func TrimPrefix(key, prefix string) string {
	return strings.TrimPrefix(key, prefix)
}
