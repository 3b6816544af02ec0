package pods

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeConfiguration indicates an empty or invalid name, option or descriptor
	CodeConfiguration = "POD_CONFIGURATION"

	// CodeDuplicateRegistration indicates a pod name is already registered
	CodeDuplicateRegistration = "POD_ALREADY_REGISTERED"

	// CodeCircularCreation indicates a re-entrant creation or an alias cycle
	CodeCircularCreation = "POD_CIRCULAR_CREATION"

	// CodeCreationFailure indicates a factory or lifecycle step failed
	CodeCreationFailure = "POD_CREATION_FAILED"

	// CodeCreationForbidden indicates creation was attempted during or after teardown
	CodeCreationForbidden = "POD_CREATION_FORBIDDEN"

	// CodeLookup indicates a pod name or type could not be found
	CodeLookup = "POD_NOT_FOUND"

	// CodeNotUnique indicates a type query matched more than one pod
	CodeNotUnique = "POD_NOT_UNIQUE"

	// CodeTypeMismatch indicates a pod is not of the requested type
	CodeTypeMismatch = "POD_TYPE_MISMATCH"

	// CodeLifecycleMethod indicates a declared init or destroy method is missing or invalid
	CodeLifecycleMethod = "POD_LIFECYCLE_METHOD"

	// CodeDestructionFailure indicates a pod failed while being destroyed
	CodeDestructionFailure = "POD_DESTRUCTION_FAILED"

	// CodeScopeEnded indicates operation on an ended scope
	CodeScopeEnded = "SCOPE_ENDED"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrConfiguration is a sentinel for configuration errors (for error checking).
var ErrConfiguration = errs.NewError(CodeConfiguration, "invalid configuration", nil)

// ErrDuplicateRegistration is a sentinel for duplicate registrations.
var ErrDuplicateRegistration = errs.NewError(CodeDuplicateRegistration, "pod already registered", nil)

// ErrCircularCreation is a sentinel for circular creation and alias cycles.
var ErrCircularCreation = errs.NewError(CodeCircularCreation, "circular creation", nil)

// ErrCreationFailure is a sentinel for failed pod creation.
var ErrCreationFailure = errs.NewError(CodeCreationFailure, "pod creation failed", nil)

// ErrCreationForbidden is a sentinel for creation attempted during teardown.
var ErrCreationForbidden = errs.NewError(CodeCreationForbidden, "pod creation forbidden", nil)

// ErrLookup is a sentinel for pods that cannot be found.
var ErrLookup = errs.NewError(CodeLookup, "pod not found", nil)

// ErrNotUnique is a sentinel for type lookups matching several pods.
var ErrNotUnique = errs.NewError(CodeNotUnique, "pod not unique", nil)

// ErrTypeMismatch is a sentinel for pods of an unexpected type.
var ErrTypeMismatch = errs.NewError(CodeTypeMismatch, "pod type mismatch", nil)

// ErrLifecycleMethod is a sentinel for invalid lifecycle method declarations.
var ErrLifecycleMethod = errs.NewError(CodeLifecycleMethod, "invalid lifecycle method", nil)

// ErrDestructionFailure is a sentinel for failed pod destruction.
var ErrDestructionFailure = errs.NewError(CodeDestructionFailure, "pod destruction failed", nil)

// ErrScopeEnded is returned when operations are attempted on an ended scope.
var ErrScopeEnded = errs.NewError(CodeScopeEnded, "scope has ended", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

// NewConfigurationError creates an error for invalid names, options or descriptors.
func NewConfigurationError(podName, reason string) *errs.Error {
	msg := reason
	if podName != "" {
		msg = fmt.Sprintf("pod '%s': %s", podName, reason)
	}

	return errs.NewError(CodeConfiguration, msg, nil).
		WithContext("pod", podName).(*errs.Error)
}

// ErrAlreadyRegistered creates an error for a name that is already bound.
func ErrAlreadyRegistered(podName string, existing any) *errs.Error {
	return errs.NewError(
		CodeDuplicateRegistration,
		fmt.Sprintf("could not register pod '%s': already bound to %T, remove it first", podName, existing),
		nil,
	).WithContext("pod", podName).(*errs.Error)
}

// ErrCurrentlyInCreation creates an error for a re-entrant creation request.
func ErrCurrentlyInCreation(podName string) *errs.Error {
	return errs.NewError(
		CodeCircularCreation,
		fmt.Sprintf("pod '%s' is currently in creation: is there an unresolvable circular reference? "+
			"consider a Lazy dependency or enabling early references for one side of the cycle", podName),
		nil,
	).WithContext("pod", podName).(*errs.Error)
}

// ErrRawEarlyReference creates an error for an early reference that was handed
// out before the pod was wrapped into a different final instance.
func ErrRawEarlyReference(podName string, holders []string) *errs.Error {
	return errs.NewError(
		CodeCircularCreation,
		fmt.Sprintf("pod '%s' has been injected into [%s] in its raw version as part of a circular reference, "+
			"but has eventually been wrapped; the holders do not use the final pod", podName, strings.Join(holders, ", ")),
		nil,
	).WithContext("pod", podName).
		WithContext("holders", holders).(*errs.Error)
}

// ErrCircularDependsOn creates an error for two pods that declare each other as depends-on.
func ErrCircularDependsOn(podName, dependsOn string) *errs.Error {
	return errs.NewError(
		CodeCircularCreation,
		fmt.Sprintf("circular depends-on relationship between '%s' and '%s'", podName, dependsOn),
		nil,
	).WithContext("pod", podName).
		WithContext("cycle", []string{podName, dependsOn, podName}).(*errs.Error)
}

// ErrAliasCycle creates an error for an alias registration that would close a cycle.
func ErrAliasCycle(target, alias string) *errs.Error {
	return errs.NewError(
		CodeCircularCreation,
		fmt.Sprintf("cannot register alias '%s' for name '%s': circular reference, '%s' is a direct or indirect alias for '%s' already",
			alias, target, target, alias),
		nil,
	).WithContext("pod", target).
		WithContext("cycle", []string{alias, target, alias}).(*errs.Error)
}

// ErrAliasTaken creates an error for an alias already bound to another target.
func ErrAliasTaken(alias, target, existing string) *errs.Error {
	return errs.NewError(
		CodeConfiguration,
		fmt.Sprintf("cannot define alias '%s' for name '%s': it is already registered for name '%s'", alias, target, existing),
		nil,
	).WithContext("pod", target).
		WithContext("alias", alias).(*errs.Error)
}

// NewCreationError wraps a cause that aborted the creation of a pod. Related
// holds errors suppressed by other requests during the same outer creation.
func NewCreationError(podName, origin string, cause error, related []error) *errs.Error {
	msg := fmt.Sprintf("error creating pod '%s'", podName)
	if origin != "" {
		msg = fmt.Sprintf("error creating pod '%s' defined in %s", podName, origin)
	}

	e := errs.NewError(CodeCreationFailure, msg, cause).
		WithContext("pod", podName).(*errs.Error)
	if origin != "" {
		e = e.WithContext("origin", origin).(*errs.Error)
	}

	if len(related) > 0 {
		e = e.WithContext("related", related).(*errs.Error)
	}

	return e
}

// ErrCreationNotAllowed creates an error for creation attempted during or after teardown.
func ErrCreationNotAllowed(podName, reason string) *errs.Error {
	return errs.NewError(
		CodeCreationForbidden,
		fmt.Sprintf("pod '%s' cannot be created: %s (do not request pods from destroy methods)", podName, reason),
		nil,
	).WithContext("pod", podName).(*errs.Error)
}

// ErrPodNotFound creates an error for an unknown pod name.
func ErrPodNotFound(podName string) *errs.Error {
	return errs.NewError(
		CodeLookup,
		fmt.Sprintf("no pod named '%s' available", podName),
		nil,
	).WithContext("pod", podName).(*errs.Error)
}

// ErrPodOfTypeNotFound creates an error for a type query without any match.
func ErrPodOfTypeNotFound(typeName string) *errs.Error {
	return errs.NewError(
		CodeLookup,
		fmt.Sprintf("no pod of type '%s' available", typeName),
		nil,
	).WithContext("type", typeName).(*errs.Error)
}

// ErrPodNotUnique creates an error for a type query that matched several pods.
func ErrPodNotUnique(typeName string, candidates []string) *errs.Error {
	return errs.NewError(
		CodeNotUnique,
		fmt.Sprintf("expected single pod of type '%s' but found %d: %s",
			typeName, len(candidates), strings.Join(candidates, ", ")),
		nil,
	).WithContext("type", typeName).
		WithContext("candidates", candidates).(*errs.Error)
}

// ErrPodTypeMismatch creates an error for a pod that does not have the requested type.
func ErrPodTypeMismatch(podName, expected string, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("pod '%s' is expected to be of type '%s' but was actually of type '%T'", podName, expected, actual),
		nil,
	).WithContext("pod", podName).
		WithContext("type", expected).(*errs.Error)
}

// NewLifecycleMethodError creates an error for a missing or invalid init/destroy method.
func NewLifecycleMethodError(podName, method, reason string) *errs.Error {
	return errs.NewError(
		CodeLifecycleMethod,
		fmt.Sprintf("pod '%s' lifecycle method '%s': %s", podName, method, reason),
		nil,
	).WithContext("pod", podName).
		WithContext("method", method).(*errs.Error)
}

// NewDestructionError wraps a failure observed while destroying a pod.
func NewDestructionError(podName string, cause error) *errs.Error {
	return errs.NewError(
		CodeDestructionFailure,
		fmt.Sprintf("destruction of pod '%s' failed", podName),
		cause,
	).WithContext("pod", podName).(*errs.Error)
}

// =============================================================================
// ERROR INSPECTION
// =============================================================================

// IsCircularCreation reports whether err, or any cause in its chain, is a circular creation error.
func IsCircularCreation(err error) bool { return hasCode(err, ErrCircularCreation) }

// IsCreationForbidden reports whether err, or any cause in its chain, is a creation forbidden error.
func IsCreationForbidden(err error) bool { return hasCode(err, ErrCreationForbidden) }

// IsLookup reports whether err, or any cause in its chain, is a lookup error.
func IsLookup(err error) bool { return hasCode(err, ErrLookup) }

// IsCreationFailure reports whether err, or any cause in its chain, is a creation failure.
func IsCreationFailure(err error) bool { return hasCode(err, ErrCreationFailure) }

// IsLifecycleMethod reports whether err, or any cause in its chain, is a lifecycle method error.
func IsLifecycleMethod(err error) bool { return hasCode(err, ErrLifecycleMethod) }

// ErrorCode returns the code of a pod error carried by err, or an empty
// string when err carries none. Wrapping failures take precedence over
// their causes.
func ErrorCode(err error) string {
	for _, c := range []struct {
		code     string
		sentinel error
	}{
		{CodeDestructionFailure, ErrDestructionFailure},
		{CodeCreationFailure, ErrCreationFailure},
		{CodeConfiguration, ErrConfiguration},
		{CodeDuplicateRegistration, ErrDuplicateRegistration},
		{CodeCircularCreation, ErrCircularCreation},
		{CodeCreationForbidden, ErrCreationForbidden},
		{CodeLookup, ErrLookup},
		{CodeNotUnique, ErrNotUnique},
		{CodeTypeMismatch, ErrTypeMismatch},
		{CodeLifecycleMethod, ErrLifecycleMethod},
		{CodeScopeEnded, ErrScopeEnded},
	} {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}

	return ""
}

// PodName returns the pod name attached to the outermost pod error in err.
func PodName(err error) string {
	var e *errs.Error
	if !errors.As(err, &e) {
		return ""
	}

	name, _ := e.GetContext()["pod"].(string)

	return name
}

// RelatedCauses returns the suppressed errors attached to a creation failure.
func RelatedCauses(err error) []error {
	for err != nil {
		var e *errs.Error
		if !errors.As(err, &e) {
			return nil
		}

		if related, ok := e.GetContext()["related"].([]error); ok {
			return related
		}

		err = e.Cause()
	}

	return nil
}

// hasCode walks err and its errs.Error causes looking for the sentinel's code.
func hasCode(err error, sentinel error) bool {
	for err != nil {
		if errors.Is(err, sentinel) {
			return true
		}

		var e *errs.Error
		if !errors.As(err, &e) {
			return false
		}

		err = e.Cause()
	}

	return false
}

// withPodContext returns e with the pod name attached. e may be a shared
// sentinel, so it is wrapped instead of modified.
func withPodContext(e *errs.Error, podName string) *errs.Error {
	if _, ok := e.GetContext()["pod"]; ok {
		return e
	}

	return errs.NewError(e.Code, e.Message, e).
		WithContext("pod", podName).(*errs.Error)
}
