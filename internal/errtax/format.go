package errtax

import "encoding/json"

// envelope is the wire shape of every error returned at the API boundary.
type envelope struct {
	Success bool          `json:"success"`
	Error   envelopeError `json:"error"`
}

type envelopeError struct {
	Category Category       `json:"category"`
	Message  string         `json:"message"`
	Recovery Recovery       `json:"recovery"`
	Details  map[string]any `json:"details,omitempty"`
}

// FormatJSON renders err as the standard {success:false,error:{...}} envelope.
// Non-*Error inputs are lifted first so every caller gets the same shape.
func FormatJSON(err error) ([]byte, error) {
	ae := Lift(err)
	if ae == nil {
		return json.Marshal(envelope{Success: true})
	}

	return json.Marshal(envelope{
		Success: false,
		Error: envelopeError{
			Category: ae.Category,
			Message:  ae.Message,
			Recovery: ae.Recovery(),
			Details:  ae.Details,
		},
	})
}

// FormatForLog returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	ae := Lift(err)
	if ae == nil {
		return nil
	}

	result := map[string]any{
		"category": string(ae.Category),
		"message":  ae.Message,
	}

	if ae.Cause != nil {
		result["cause"] = ae.Cause.Error()
	}

	for k, v := range ae.Details {
		result["detail_"+k] = v
	}

	return result
}
