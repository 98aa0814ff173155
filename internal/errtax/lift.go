package errtax

// categorizedError is implemented by custom error classes from other
// packages (vector store, embedding worker, migration runner, OCR/VLM
// workers) that want Lift to preserve their own category rather than
// falling back to INTERNAL_ERROR.
type categorizedError interface {
	error
	ErrorCategory() Category
}

// codedError is implemented by custom error classes that carry a
// sub-system-specific code and structured details, which Lift folds
// into the taxonomy error's Details under "code" and "<key>".
type codedError interface {
	error
	ErrorCode() string
}

type detailedError interface {
	error
	ErrorDetails() map[string]any
}

// Lift converts err into a taxonomy *Error.
//
//   - nil lifts to nil.
//   - an *Error passes through unchanged.
//   - a known custom error class (one implementing categorizedError) maps
//     to its own category, provided that category is a member of the
//     closed set; otherwise it falls through to INTERNAL_ERROR. Its code
//     and details, if any, are preserved as structured sub-fields.
//   - anything else wraps as INTERNAL_ERROR, with the original error
//     preserved as Cause.
func Lift(err error) *Error {
	if err == nil {
		return nil
	}

	if ae, ok := err.(*Error); ok {
		return ae
	}

	category := CategoryInternal
	if ce, ok := err.(categorizedError); ok && IsKnownCategory(ce.ErrorCategory()) {
		category = ce.ErrorCategory()
	}

	lifted := New(category, err.Error(), err)

	if ce, ok := err.(codedError); ok {
		lifted.WithDetail("code", ce.ErrorCode())
	}
	if de, ok := err.(detailedError); ok {
		for k, v := range de.ErrorDetails() {
			lifted.WithDetail(k, v)
		}
	}

	return lifted
}
