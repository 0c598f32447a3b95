package util

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

func JsonWrite(w http.ResponseWriter, v interface{}) {
	JsonStatus(w, http.StatusOK, v)
}

// JsonStatus writes v as the body of a code response.
func JsonStatus(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		panic(err)
	}
}

func JsonError(w http.ResponseWriter, code int, err error) {
	JsonStatus(w, code, map[string]string{"error": err.Error()})
}

func GenUUID() (string, error) {
	x, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return x.String(), nil
}
