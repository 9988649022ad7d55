// Package pverror provides the error handling used in pciview.
// The core part is the constructor function E().
package pverror

import (
	"errors"
)

// Op describes an operation, usually as the name of the method.
type Op string

// Scope identifies the subsystem where the error occurred.
type Scope string

// Scopes of errors.
const (
	Confspace Scope = "Config space"
	Host      Scope = "Host"
	Pvlog     Scope = "Pvlog"
)

// Error provides structured and detailed context. Some fields
// may be left unset.
//
// An Error value should be created using the E() function.
type Error struct {
	// Op is the operation being executed when the error occurred.
	Op Op
	// Scope is the subsystem of pciview causing the error.
	Scope Scope
	// Info provides further context to the error or holds the string
	// value of the triggering error if it is not wrapped.
	Info string
	// Err is the underlying wrapped error.
	Err error
}

const (
	colon   string = ": "
	hyphen  string = " - "
	newline string = "\n"
)

// Error implements the error interface.
func (e Error) Error() string {
	var str string

	switch {
	case e.Op != "" && e.Info != "":
		str += colon + string(e.Op) + hyphen + e.Info
	case e.Op != "":
		str += colon + string(e.Op)
	case e.Info != "":
		str += colon + e.Info
	default:
	}

	if e.Err != nil {
		str += newline + e.Err.Error()
	}

	return str
}

// Unwrap returns the wrapped error, so that Error cooperates with
// errors.Is and errors.As.
func (e Error) Unwrap() error {
	return e.Err
}

// E returns an Error constructed from its arguments.
// There should be at least one argument, or E returns an unspecified
// error. The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//		pverror.Op
//				The performed operation.
//		pverror.Scope
//				The subsystem where the error occurred.
//		error
//				The underlying error if it should be wrapped.
//		string
//				Treated as error message of an error that should
//				not be wrapped or as additional information to the
//				provided error.
//
// Further types will be ignored.
func E(args ...interface{}) Error {
	if len(args) == 0 {
		return Error{Info: "unspecified"}
	}

	var err = Error{}

	for _, arg := range args {
		switch arg := arg.(type) {
		case Op:
			err.Op = arg
		case Scope:
			err.Scope = arg
		case error:
			err.Err = arg
		case string:
			err.Info = arg
		default:
		}
	}

	return err
}

// Equal returns true if the two provided Errors are equal.
func Equal(got, want Error) bool {
	if got.Scope != want.Scope {
		return false
	}

	if got.Op != want.Op {
		return false
	}

	if got.Info != want.Info {
		return false
	}

	gotWrapped, gotIsError := got.Err.(Error)
	wantWrapped, wantIsError := want.Err.(Error)

	if gotIsError != wantIsError {
		return false
	}

	if gotIsError {
		return Equal(gotWrapped, wantWrapped)
	}

	return errors.Is(got.Err, want.Err)
}
