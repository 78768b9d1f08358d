package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// User is the faculty identity visible outside the directory.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credential is a directory record before hashing.
type Credential struct {
	User
	Secret string
}

type account struct {
	user User
	hash []byte
}

// Directory checks faculty credentials. Secrets are held as bcrypt hashes.
type Directory struct {
	byEmail map[string]account
}

// NewDirectory hashes the given credentials with cost (0 = bcrypt default).
func NewDirectory(creds []Credential, cost int) (*Directory, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	d := &Directory{byEmail: make(map[string]account, len(creds))}
	for _, c := range creds {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Secret), cost)
		if err != nil {
			return nil, fmt.Errorf("hash secret for %s: %w", c.Email, err)
		}
		d.byEmail[c.Email] = account{user: c.User, hash: hash}
	}
	return d, nil
}

// Authenticate returns the user whose email matches exactly and whose secret
// matches. Unknown email and wrong secret are indistinguishable.
func (d *Directory) Authenticate(email, secret string) (User, bool) {
	acc, ok := d.byEmail[email]
	if !ok {
		return User{}, false
	}
	if bcrypt.CompareHashAndPassword(acc.hash, []byte(secret)) != nil {
		return User{}, false
	}
	return acc.user, true
}
