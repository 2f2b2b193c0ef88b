package stack

import (
	"modalnav/internal/components"
	"modalnav/pkg/types"
)

// Instance is one open or loading modal. Index in the stack is z-order
// (0 = bottom); the last element is the focused modal.
type Instance struct {
	// Process-unique, monotonically assigned, never reused.
	ID int64
	// Resolved UI unit; nil while Loading.
	Component components.Component
	// Server-assigned logical name, used for de-duplication and page context.
	ComponentName string
	Props         types.Props
	// The modal's own resource URL; at most one instance per URL may exist.
	URL string
	// Backdrop URL to display behind the modal.
	BaseURL string
	// Exact URL (including query string) the user was on before the modal
	// opened; preferred over BaseURL when restoring on close.
	ReturnURL string
	Config    types.ModalConfig
	Loading   bool
	// Optional override UI shown while Loading.
	LoadingComponent components.Component

	onClose func()
}

// Data is the push payload; the store assigns the ID.
type Data struct {
	Component        components.Component
	ComponentName    string
	Props            types.Props
	URL              string
	BaseURL          string
	ReturnURL        string
	Config           types.ModalConfig
	Loading          bool
	LoadingComponent components.Component
	// OnClose runs exactly once, after the instance has been removed by
	// Pop. Clear never runs it.
	OnClose func()
}

// Update is a partial merge applied by Store.Update. Nil/zero fields keep
// the current value; Loading uses a pointer so it can be set to false.
type Update struct {
	Component     components.Component
	ComponentName string
	Props         types.Props
	BaseURL       string
	Config        *types.ModalConfig
	Loading       *bool
}
