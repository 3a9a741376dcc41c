package security

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plain text password with bcrypt at the default cost.
// bcrypt salts every hash, so the same input never hashes the same way twice.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// VerifyPassword reports whether plain matches hash. A malformed hash is
// treated as a mismatch.
func VerifyPassword(hash, plain string) bool {
	return CheckPassword(hash, plain) == nil
}
