package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"millaudit/internal/domain"
)

// pathParam binds a required simple-style path parameter.
func pathParam(r *http.Request, name string) (string, error) {
	var out string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &out,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return "", fmt.Errorf("%w: invalid path parameter %s: %v", domain.ErrInvalidInput, name, err)
	}
	return out, nil
}

type listSubmissionsParams struct {
	TemplateID *string
	Limit      *int
}

func bindListSubmissions(r *http.Request) (listSubmissionsParams, error) {
	var p listSubmissionsParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "templateId", q, &p.TemplateID); err != nil {
		return p, fmt.Errorf("%w: invalid templateId: %v", domain.ErrInvalidInput, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &p.Limit); err != nil {
		return p, fmt.Errorf("%w: invalid limit: %v", domain.ErrInvalidInput, err)
	}
	return p, nil
}

// decodeBody decodes a JSON body keeping numbers as json.Number so answers
// reach the parser without float rounding. Unknown fields are rejected.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
