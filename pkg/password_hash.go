package pkg

import "golang.org/x/crypto/bcrypt"

// PasswordHashCost is the bcrypt work factor used for newly stored passwords.
// Existing hashes keep whatever cost they were created with.
const PasswordHashCost = 12

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return BytesToString(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
