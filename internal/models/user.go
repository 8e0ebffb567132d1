package models

// User — учётная запись. PasswordHash наружу не сериализуется.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash []byte `json:"-"`
}
