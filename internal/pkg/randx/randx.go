/*
Package randx provides cryptographically secure random strings and identifiers.

It generates Base62 secrets (used for the bootstrap administrator password when
none is configured) and UUID message IDs for chat broadcasts.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// PasswordLength is the length of generated bootstrap passwords.
	PasswordLength = 16
)

// Base62 returns a random Base62 string of the given length using crypto/rand.
func Base62(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// Password generates a random PasswordLength-character secret.
func Password() (string, error) {
	return Base62(PasswordLength)
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}
