package lazyinit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypesUnwrapToSentinel(t *testing.T) {
	cases := []error{
		&TimeoutError{Attribute: "slow", Timeout: time.Second},
		&DependencyCycleError{Path: []string{"a", "b", "a"}},
		&InvalidIdentifierError{Name: "9bad"},
		&UnknownAttributeError{Name: "ghost"},
	}

	for _, err := range cases {
		assert.ErrorIs(t, err, ErrLazyInit, "%T must unwrap to ErrLazyInit", err)
	}

	assert.False(t, errors.Is(errors.New("user error"), ErrLazyInit))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		"circular dependency detected: a -> b -> a",
		(&DependencyCycleError{Path: []string{"a", "b", "a"}}).Error(),
	)
	assert.Contains(t,
		(&TimeoutError{Attribute: "db", Timeout: 5 * time.Second}).Error(),
		`"db" timed out after 5s`,
	)
	assert.Contains(t,
		(&TimeoutError{Timeout: time.Second}).Error(),
		"timed out after 1s",
	)
	assert.Contains(t, (&UnknownAttributeError{Name: "ghost"}).Error(), `"ghost"`)
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"a", "_a", "snake_case", "camelCase", "v2", "ready?", "reload!", "A1_b2?"}
	for _, name := range valid {
		assert.NoError(t, validateIdentifier(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "1a", "has space", "hy-phen", "mid?dle", "bang!twice!", "?lead", "tab\t"}
	for _, name := range invalid {
		assert.Error(t, validateIdentifier(name), "expected %q to be invalid", name)
	}
}

func TestSafeTypeAssertion(t *testing.T) {
	n, err := SafeTypeAssertion[int](42)
	assert.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = SafeTypeAssertion[string](42)
	assert.Error(t, err)

	s, err := SafeTypeAssertion[string](nil)
	assert.NoError(t, err)
	assert.Equal(t, "", s)
}
