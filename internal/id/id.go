package id

import gonanoid "github.com/matoous/go-nanoid/v2"

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID creates a unique 16-character alphanumeric ID.
func GenerateID() string {
	s, err := gonanoid.Generate(alphabet, 16)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return s
}
