package types

import "encoding/json"

// Header names making up the modal wire contract between the client engine
// and the page-rendering server.
const (
	// HeaderModalRequest (client -> server) asks for a modal payload
	// instead of a full page render.
	HeaderModalRequest = "X-Inertia-Modal-Request"
	// HeaderModal (server -> client) marks a response as a modal render.
	HeaderModal = "X-Inertia-Modal"
	// HeaderModalBaseURL (server -> client) carries the backdrop URL to
	// restore when the modal closes.
	HeaderModalBaseURL = "X-Inertia-Modal-Base-Url"
	// HeaderModalConfig (server -> client) carries a JSON ModalConfig
	// merged over client defaults.
	HeaderModalConfig = "X-Inertia-Modal-Config"
	// HeaderModalRedirect (server -> client) on a redirect response means
	// "close the modal, then follow the redirect".
	HeaderModalRedirect = "X-Inertia-Modal-Redirect"
)

// Host-router headers the reference router speaks. These belong to the
// surrounding SPA transport, not to the modal contract itself.
const (
	HeaderInertia        = "X-Inertia"
	HeaderInertiaVersion = "X-Inertia-Version"
	// Partial reload headers: the client asks for a subset of props of the
	// component it already shows.
	HeaderInertiaPartialData      = "X-Inertia-Partial-Data"
	HeaderInertiaPartialComponent = "X-Inertia-Partial-Component"
)

// ModalPropsKey is the reserved page-props key under which a rewritten
// modal response nests its payload. The rewritten response looks like a
// same-page prop update to the host router; the stack store finds the
// modal under this key.
const ModalPropsKey = "_nb_modal"

// Props is an arbitrary key/value payload attached to a page or modal.
type Props map[string]any

// Clone returns a shallow copy so callers can merge without mutating the
// source map.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Page is the envelope the host router exchanges with the server.
type Page struct {
	// Logical component name resolved by the UI layer.
	// example: Users/Show
	Component string `json:"component" example:"Users/Show"`
	Props     Props  `json:"props"`
	// example: /users/1
	URL     string `json:"url" example:"/users/1"`
	Version string `json:"version,omitempty"`
}

// Modal extracts the nested modal payload from the reserved props key.
// The second return is false when the page carries no modal, or when the
// nested payload is malformed (missing component or url) and must be
// treated as an ordinary page.
func (p Page) Modal() (ModalData, bool) {
	raw, ok := p.Props[ModalPropsKey]
	if !ok || raw == nil {
		return ModalData{}, false
	}
	var data ModalData
	switch v := raw.(type) {
	case ModalData:
		data = v
	case *ModalData:
		if v == nil {
			return ModalData{}, false
		}
		data = *v
	default:
		// Decoded JSON arrives as map[string]any; round-trip it.
		b, err := json.Marshal(v)
		if err != nil {
			return ModalData{}, false
		}
		if err := json.Unmarshal(b, &data); err != nil {
			return ModalData{}, false
		}
	}
	if !data.Valid() {
		return ModalData{}, false
	}
	return data, true
}
