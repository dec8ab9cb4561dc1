package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"classquiz/internal/apperr"
)

var validate = validator.New()

// Decode reads a JSON body into dst and runs its validate tags.
func Decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("invalid request body")
	}
	return Validate(dst)
}

func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return apperr.Invalid(strings.Join(msgs, "; "))
		}
		return apperr.Invalid(err.Error())
	}
	return nil
}

// PathID parses a positive integer path variable.
func PathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Newf(apperr.KindInvalid, "invalid %s", name)
	}
	return uint(id), nil
}
