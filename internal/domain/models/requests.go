package models

// Requests for the dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type StateRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type DisplayRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

// ControlMessage is the client-to-server frame on the websocket transport.
type ControlMessage struct {
	Type   string `json:"type" validate:"required,oneof=subscribe unsubscribe"`
	Symbol string `json:"symbol" validate:"required"`
}
