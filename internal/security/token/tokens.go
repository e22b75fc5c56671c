// Package tokens genera material aleatorio (ids, secretos, códigos) y compara
// credenciales en tiempo constante.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"math/big"

	"github.com/google/uuid"
)

// Digits es el alfabeto por defecto de los códigos one-time.
const Digits = "0123456789"

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewID genera un id opaco (UUIDv4 canónico).
func NewID() string {
	return uuid.NewString()
}

// NewCode genera un código de length caracteres tomados de alphabet con
// crypto/rand (sin sesgo de módulo).
func NewCode(length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", errors.New("tokens: code length must be positive")
	}
	symbols := []rune(alphabet)
	if len(symbols) < 2 {
		return "", errors.New("tokens: alphabet needs at least two symbols")
	}
	max := big.NewInt(int64(len(symbols)))
	out := make([]rune, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = symbols[n.Int64()]
	}
	return string(out), nil
}

// Equal compara dos credenciales en tiempo constante. Se comparan los
// SHA-256 de ambos lados, así ni la longitud ni el prefijo compartido
// afectan el tiempo de la comparación.
func Equal(presented, stored string) bool {
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(stored))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
