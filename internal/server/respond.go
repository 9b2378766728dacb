package server

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/data-layer/crypto"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/resolve"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/search"
	"github.com/matko5ss/kripto-transakcije-sub000/internal/service/explorer"
)

const (
	msgOK            = "OK"
	msgUnknownAction = "Nepoznata akcija"
	msgMissingAction = "Nedostaje action parametar"
)

// envelope is the response shape the UI expects: status "1" on success and
// "0" on failure with the reason in message.
type envelope struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Result  any          `json:"result"`
	Source  model.Source `json:"source,omitempty"`
}

func writeJSON(rc *fasthttp.RequestCtx, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		rc.SetContentType("application/json")
		rc.SetBodyString(`{"status":"0","message":"encode response","result":null}`)
		return
	}
	rc.SetStatusCode(code)
	rc.SetContentType("application/json")
	rc.SetBody(body)
}

func ok(rc *fasthttp.RequestCtx, result any) {
	writeJSON(rc, fasthttp.StatusOK, envelope{Status: "1", Message: msgOK, Result: result, Source: model.SourceLive})
}

func fail(rc *fasthttp.RequestCtx, code int, message string) {
	writeJSON(rc, code, envelope{Status: "0", Message: message})
}

// sourced answers with a resolved value and where it came from. A value that
// could not be resolved at all is a 502.
func sourced[T any](rc *fasthttp.RequestCtx, v model.Sourced[T], render func(T) any) {
	if !v.OK() {
		fail(rc, fasthttp.StatusBadGateway, errMessage(v.Err))
		return
	}
	result := any(v.Value)
	if render != nil {
		result = render(v.Value)
	}
	message := msgOK
	if v.Source == model.SourceFallback {
		message = "Korištena fallback vrijednost"
	}
	writeJSON(rc, fasthttp.StatusOK, envelope{Status: "1", Message: message, Result: result, Source: v.Source})
}

func errMessage(err error) string {
	if err == nil {
		return resolve.ErrUnavailable.Error()
	}
	return err.Error()
}

// failErr maps an explorer error to a status code.
func (s *Server) failErr(rc *fasthttp.RequestCtx, err error) {
	code := statusFor(err)
	if code >= fasthttp.StatusInternalServerError {
		s.logger.Warn().Err(err).Bytes("path", rc.Path()).Msg("request failed")
	}
	fail(rc, code, errMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, explorer.ErrInvalidID), errors.Is(err, search.ErrUnrecognized):
		return fasthttp.StatusBadRequest
	case errors.Is(err, crypto.ErrNotFound), errors.Is(err, search.ErrNoExplorer):
		return fasthttp.StatusNotFound
	case errors.Is(err, explorer.ErrNoVendor):
		return fasthttp.StatusServiceUnavailable
	}
	return fasthttp.StatusBadGateway
}

// arg reads a parameter from the query string, a form body or a JSON body.
func arg(rc *fasthttp.RequestCtx, name string) string {
	if v := rc.QueryArgs().Peek(name); len(v) > 0 {
		return string(v)
	}
	if !rc.IsPost() {
		return ""
	}
	if v := rc.PostArgs().Peek(name); len(v) > 0 {
		return string(v)
	}
	body, _ := rc.UserValue("jsonBody").(map[string]any)
	if body == nil {
		body = map[string]any{}
		if len(rc.PostBody()) > 0 {
			_ = json.Unmarshal(rc.PostBody(), &body)
		}
		rc.SetUserValue("jsonBody", body)
	}
	switch v := body[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// intArg reads a list size; it is capped at explorer.MaxListLimit.
func intArg(rc *fasthttp.RequestCtx, name string, def int) int {
	n, err := strconv.Atoi(arg(rc, name))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, explorer.MaxListLimit)
}

func pathValue(rc *fasthttp.RequestCtx, name string) string {
	v, _ := rc.UserValue(name).(string)
	return v
}
