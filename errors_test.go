package pods

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/errs"
	"go.uber.org/multierr"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("plain"), ""},
		{"configuration", NewConfigurationError("svc", "bad"), CodeConfiguration},
		{"duplicate", ErrAlreadyRegistered("svc", 1), CodeDuplicateRegistration},
		{"in creation", ErrCurrentlyInCreation("svc"), CodeCircularCreation},
		{"alias cycle", ErrAliasCycle("a", "b"), CodeCircularCreation},
		{"alias taken", ErrAliasTaken("a", "b", "c"), CodeConfiguration},
		{"forbidden", ErrCreationNotAllowed("svc", "closed"), CodeCreationForbidden},
		{"not found", ErrPodNotFound("svc"), CodeLookup},
		{"type not found", ErrPodOfTypeNotFound("*db.Pool"), CodeLookup},
		{"not unique", ErrPodNotUnique("*db.Pool", []string{"a", "b"}), CodeNotUnique},
		{"mismatch", ErrPodTypeMismatch("svc", "string", 1), CodeTypeMismatch},
		{"lifecycle", NewLifecycleMethodError("svc", "Open", "missing"), CodeLifecycleMethod},
		{"scope ended", ErrScopeEnded, CodeScopeEnded},
		{"creation wraps cause", NewCreationError("svc", "", ErrCurrentlyInCreation("dep"), nil), CodeCreationFailure},
		{"destruction", NewDestructionError("svc", errors.New("close failed")), CodeDestructionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestCreationError_CausesAreInspectable(t *testing.T) {
	cause := ErrCurrentlyInCreation("dep")
	err := NewCreationError("svc", "svc.go:12", cause, nil)

	assert.True(t, IsCreationFailure(err))
	assert.True(t, IsCircularCreation(err))
	assert.False(t, IsLookup(err))
	assert.Equal(t, "svc", PodName(err))
	assert.Contains(t, err.Error(), "svc.go:12")

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "svc.go:12", e.GetContext()["origin"])
	assert.Equal(t, cause, e.Cause())
}

func TestRelatedCauses(t *testing.T) {
	related := []error{errors.New("first"), errors.New("second")}
	err := NewCreationError("svc", "", errors.New("root"), related)

	assert.Equal(t, related, RelatedCauses(err))

	outer := NewCreationError("outer", "", err, nil)
	assert.Equal(t, related, RelatedCauses(outer))

	assert.Nil(t, RelatedCauses(NewCreationError("svc", "", errors.New("root"), nil)))
	assert.Nil(t, RelatedCauses(errors.New("plain")))
}

func TestPodName(t *testing.T) {
	assert.Equal(t, "", PodName(nil))
	assert.Equal(t, "", PodName(errors.New("plain")))
	assert.Equal(t, "", PodName(ErrPodOfTypeNotFound("string")))
	assert.Equal(t, "db", PodName(ErrPodNotFound("db")))

	combined := multierr.Combine(NewDestructionError("a", errors.New("x")), NewDestructionError("b", errors.New("y")))
	assert.Equal(t, "a", PodName(combined))
}

func TestWithPodContext(t *testing.T) {
	e := NewLifecycleMethodError("svc", "Open", "missing")
	assert.Same(t, e, withPodContext(e, "other"))

	bare := errs.NewError(CodeLifecycleMethod, "no pod", nil)
	assert.Equal(t, "svc", PodName(withPodContext(bare, "svc")))
	assert.NotContains(t, bare.GetContext(), "pod")
}

func TestWithPodContext_LeavesSentinelsUntouched(t *testing.T) {
	for _, sentinel := range []*errs.Error{ErrScopeEnded, ErrLookup, ErrCreationFailure} {
		err := withPodContext(sentinel, "svc")

		assert.Equal(t, "svc", PodName(err))
		assert.True(t, errors.Is(err, sentinel))
		assert.Equal(t, ErrorCode(sentinel), ErrorCode(err))
		assert.NotContains(t, sentinel.GetContext(), "pod")
	}
}
