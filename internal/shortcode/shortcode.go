package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	DefaultLength = 7
	MinLength     = 4
	MaxLength     = 16
)

// Generator issues random alphanumeric codes. It never checks uniqueness: the
// bookmark store is the only arbiter and retries on collision.
type Generator struct {
	length int
}

func New(length int) (*Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("short code length %d out of range [%d, %d]", length, MinLength, MaxLength)
	}
	return &Generator{length: length}, nil
}

func (g *Generator) Length() int {
	return g.length
}

func (g *Generator) Generate() (string, error) {
	return Generate(g.length)
}

func Generate(length int) (string, error) {
	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate short code: %w", err)
	}
	return code, nil
}
