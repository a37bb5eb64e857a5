package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixSession = "sess"
	PrefixProblem = "prob"
	PrefixOp      = "op"
	PrefixClient  = "client"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewSessionID() string { return New(PrefixSession) }
func NewProblemID() string { return New(PrefixProblem) }
func NewOpID() string      { return New(PrefixOp) }
func NewClientID() string  { return New(PrefixClient) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
