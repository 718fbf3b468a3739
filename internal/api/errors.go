package api

import "errors"

var ErrInvalidRequest = errors.New("invalid_request")

// invalidRequestError names the request field at fault, if any.
type invalidRequestError struct {
	param string
	msg   string
}

func (e invalidRequestError) Error() string {
	if e.param == "" {
		return e.msg
	}
	return e.param + ": " + e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(param, msg string) error {
	return invalidRequestError{param: param, msg: msg}
}

// paramOf returns the offending field of an invalid request error.
func paramOf(err error) string {
	var ire invalidRequestError
	if errors.As(err, &ire) {
		return ire.param
	}
	return ""
}
