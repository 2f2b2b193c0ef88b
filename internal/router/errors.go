package router

import "strconv"

// badResponseError signals an unexpected status from the page server.
type badResponseError struct {
	url    string
	status int
}

func (e badResponseError) Error() string {
	return "unexpected response " + strconv.Itoa(e.status) + " for " + e.url
}

// ErrBadResponse constructs a badResponseError.
func ErrBadResponse(url string, status int) error { return badResponseError{url: url, status: status} }

// IsBadResponse reports whether err indicates an unexpected server status.
func IsBadResponse(err error) bool {
	_, ok := err.(badResponseError)
	return ok
}

// tooManyRedirectsError signals an unbounded redirect chain.
type tooManyRedirectsError struct{ url string }

func (e tooManyRedirectsError) Error() string { return "too many redirects visiting " + e.url }

// ErrTooManyRedirects constructs a tooManyRedirectsError.
func ErrTooManyRedirects(url string) error { return tooManyRedirectsError{url: url} }

// IsTooManyRedirects reports whether err indicates a redirect loop.
func IsTooManyRedirects(err error) bool {
	_, ok := err.(tooManyRedirectsError)
	return ok
}
