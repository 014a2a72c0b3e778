package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
)

var errEmptyBody = errors.New("request body is required")

// BindNestedOrFlat decodes the request body into obj. Clients may send the
// fields at the top level or wrapped under key, e.g. {"terms": {...}}.
// The body is restored so later reads see it unchanged.
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	if c.Request.Body == nil {
		return errEmptyBody
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}

	var envelope map[string]json.RawMessage
	if json.Unmarshal(body, &envelope) == nil {
		if nested, ok := envelope[key]; ok {
			return decode(nested, obj)
		}
	}
	return decode(body, obj)
}

func decode(data []byte, obj interface{}) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errEmptyBody
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
