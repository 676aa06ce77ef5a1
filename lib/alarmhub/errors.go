package alarmhub

import "errors"

var (
	// ErrNotAuthenticated is returned by gated calls while the session is
	// logged out. No network request is made.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrMfaRequired is returned by gated calls while a second-factor
	// challenge is pending. No network request is made.
	ErrMfaRequired = errors.New("two factor authentication required")
	// ErrMfaIncomplete is returned when the portal demanded a second factor
	// mid-call and the OnMfaRequired handler did not complete it before
	// returning.
	ErrMfaIncomplete = errors.New("two factor authentication not completed")

	// ErrInvalidQuery means the query pair list was malformed: odd length
	// or a blank key.
	ErrInvalidQuery = errors.New("invalid query pairs")
	// ErrMalformedResponse means the response body did not parse as the
	// expected envelope.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRequestFailed wraps non-2xx responses that are not the MFA
	// envelope.
	ErrRequestFailed = errors.New("request failed")

	// ErrTypeMismatch means a document's type tag did not match the type
	// tag accepted by the target entity.
	ErrTypeMismatch = errors.New("incompatible document type")
	// ErrNavBinding means a navigation binding is missing its name or one
	// of its accessors. This is a programming defect, not a transient
	// condition.
	ErrNavBinding = errors.New("incomplete navigation binding")
	// ErrRelatedNotFound means a batched relationship fetch returned fewer
	// entities than the distinct ids requested.
	ErrRelatedNotFound = errors.New("related entity not found")

	ErrLoginFailed       = errors.New("login failed")
	ErrLoginFormShape    = errors.New("unexpected login form shape")
	ErrNoIdentity        = errors.New("no identity record for user")
	ErrAmbiguousIdentity = errors.New("more than one identity record for user")

	// internal signal raised by the transport when the 409 MFA envelope is
	// detected; translated into the pending flag by the retry loop.
	errMfaSignal = errors.New("mfa challenge signaled")
)
