package types

// ModalData is the modal payload nested under ModalPropsKey, and the body
// of a bare modal response before the interceptor rewrites it.
type ModalData struct {
	// example: Users/Edit
	Component string `json:"component" example:"Users/Edit"`
	Props     Props  `json:"props"`
	// The modal's own resource URL; identity key for de-duplication.
	// example: /users/1/edit
	URL string `json:"url" example:"/users/1/edit"`
	// Backdrop URL displayed behind the modal and restored on close when
	// no exact return URL was captured.
	// example: /users
	BaseURL string      `json:"baseUrl" example:"/users"`
	Config  ModalConfig `json:"config"`
}

// Valid reports whether the payload can open a modal at all. A payload
// missing component or url falls through to ordinary navigation handling.
func (d ModalData) Valid() bool {
	return d.Component != "" && d.URL != ""
}

// ModalConfig carries size/position/behavior hints for one modal. Pointer
// fields distinguish "unset" from an explicit false so server values only
// override what they actually specify.
type ModalConfig struct {
	// example: md
	Size string `json:"size,omitempty" example:"md"`
	// example: center
	Position        string `json:"position,omitempty" example:"center"`
	CloseButton     *bool  `json:"closeButton,omitempty"`
	CloseExplicitly *bool  `json:"closeExplicitly,omitempty"`
	Slideover       *bool  `json:"slideover,omitempty"`
}

// DefaultConfig is the centrally merged default set every modal starts
// from.
func DefaultConfig() ModalConfig {
	return ModalConfig{
		Size:            "md",
		Position:        "center",
		CloseButton:     boolPtr(true),
		CloseExplicitly: boolPtr(false),
		Slideover:       boolPtr(false),
	}
}

// MergeConfig overlays over onto base field by field; unset fields in
// over keep the base value.
func MergeConfig(base, over ModalConfig) ModalConfig {
	out := base
	if over.Size != "" {
		out.Size = over.Size
	}
	if over.Position != "" {
		out.Position = over.Position
	}
	if over.CloseButton != nil {
		out.CloseButton = over.CloseButton
	}
	if over.CloseExplicitly != nil {
		out.CloseExplicitly = over.CloseExplicitly
	}
	if over.Slideover != nil {
		out.Slideover = over.Slideover
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
