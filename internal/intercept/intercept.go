// Package intercept rewrites modal responses before the host router sees
// them. A rewritten response looks like a same-page prop update for the
// backdrop, so the router performs no component swap; the modal payload
// rides along under the reserved props key.
package intercept

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"modalnav/pkg/types"
)

// maxBodyBytes caps how much of a modal response body is buffered for the
// rewrite.
const maxBodyBytes = 4 << 20

// Rewrite turns a bare modal page into a backdrop-preserving envelope: the
// component name is forced to the backdrop's, the backdrop props are merged
// with the modal props (modal wins key-for-key), and the modal payload is
// nested under types.ModalPropsKey.
func Rewrite(modal types.Page, baseURL string, cfg types.ModalConfig, backdrop types.Page) types.Page {
	data := types.ModalData{
		Component: modal.Component,
		Props:     modal.Props,
		URL:       modal.URL,
		BaseURL:   baseURL,
		Config:    cfg,
	}
	props := backdrop.Props.Clone()
	if props == nil {
		props = types.Props{}
	}
	for k, v := range modal.Props {
		props[k] = v
	}
	props[types.ModalPropsKey] = data
	return types.Page{
		Component: backdrop.Component,
		Props:     props,
		URL:       modal.URL,
		Version:   backdrop.Version,
	}
}

// Transport is the network-layer hook, installed once on the host router's
// HTTP client. Responses without the modal marker pass through untouched.
// After one rewrite the marker headers are stripped, so re-applying the
// transport to its own output is a no-op.
type Transport struct {
	// Base performs the actual round trip; http.DefaultTransport if nil.
	Base http.RoundTripper
	// Backdrop supplies the page currently on screen.
	Backdrop func() types.Page
	Log      zerolog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if !isTrue(resp.Header.Get(types.HeaderModal)) {
		return resp, nil
	}
	// Redirect responses keep their headers; the router decides whether to
	// close-then-follow based on HeaderModalRedirect.
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	var modal types.Page
	if jsonErr := json.Unmarshal(body, &modal); jsonErr != nil || modal.Component == "" || modal.URL == "" {
		// Malformed modal payload: treat as not a modal and fall through
		// to ordinary navigation handling.
		t.Log.Debug().Str("url", req.URL.String()).Msg("malformed modal payload, passing through")
		stripModalHeaders(resp.Header)
		resp.Body = io.NopCloser(bytes.NewReader(body))
		resp.ContentLength = int64(len(body))
		return resp, nil
	}

	cfg := types.DefaultConfig()
	if raw := resp.Header.Get(types.HeaderModalConfig); raw != "" {
		var over types.ModalConfig
		if jsonErr := json.Unmarshal([]byte(raw), &over); jsonErr == nil {
			cfg = types.MergeConfig(cfg, over)
		} else {
			t.Log.Debug().Err(jsonErr).Msg("invalid modal config header, using defaults")
		}
	}

	rewritten := Rewrite(modal, resp.Header.Get(types.HeaderModalBaseURL), cfg, t.Backdrop())
	out, err := json.Marshal(rewritten)
	if err != nil {
		return nil, err
	}
	stripModalHeaders(resp.Header)
	resp.Body = io.NopCloser(bytes.NewReader(out))
	resp.ContentLength = int64(len(out))
	resp.Header.Del("Content-Length")
	return resp, nil
}

func stripModalHeaders(h http.Header) {
	h.Del(types.HeaderModal)
	h.Del(types.HeaderModalBaseURL)
	h.Del(types.HeaderModalConfig)
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
