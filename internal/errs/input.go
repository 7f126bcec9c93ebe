package errs

// InputError is a validation failure whose Msg is safe to show to clients.
// It matches ErrInvalidInput under errors.Is.
type InputError struct {
	Msg string
}

// Invalid returns an InputError with the given client-facing message.
func Invalid(msg string) error { return &InputError{Msg: msg} }

func (e *InputError) Error() string { return ErrInvalidInput.Error() + ": " + e.Msg }

// Is reports ErrInvalidInput as the sentinel of every InputError.
func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }
