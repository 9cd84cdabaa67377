package req

import (
	"encoding/json"
	"mime"
	"net/http"

	"moresql-service/pkg/res"
)

// HandleBody decodes a JSON request body into T, keeping numbers as
// json.Number. A malformed body is answered with 400.
func HandleBody[T any](w *http.ResponseWriter, r *http.Request) (*T, error) {
	body, err := Decode[T](r)
	if err != nil {
		res.Json(*w, map[string]any{"error": "invalid JSON body", "details": err.Error()}, http.StatusBadRequest)
		return nil, err
	}
	return body, nil
}

func Decode[T any](r *http.Request) (*T, error) {
	var payload T
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func IsJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// Bag returns the request's key-value parameters: the query string merged
// with a form body, form values first. Repeated keys keep their first value.
func Bag(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	bag := make(map[string]string, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			bag[k] = vs[0]
		}
	}
	return bag, nil
}
