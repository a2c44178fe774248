package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeGenerator produces confirmation codes. Implementations must be safe
// for concurrent use.
type CodeGenerator interface {
	GenerateCode() (string, error)
}

type randomCodeGenerator struct{}

// NewCodeGenerator returns a generator drawing uniformly from
// ["000000", "999999"]. Codes are not guaranteed unique across calls.
func NewCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

var codeSpace = big.NewInt(1_000_000)

func (randomCodeGenerator) GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to draw confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
