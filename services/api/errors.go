package apisvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/trezcool/schooladmin/core"
)

const maxRawMessage = 300

// errorBody covers the error shapes of the backend:
// {"detail": "..."}, {"detail": [{"loc": [...], "msg": "..."}]} and {"message": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type detailItem struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

func newAPIError(status int, body []byte) *core.APIError {
	msg, flds := extractMessage(body)
	return &core.APIError{Status: status, Message: msg, Fields: flds, Body: body}
}

// extractMessage flattens an error body for display: the detail list joined with ", ",
// else the detail string, else the message, else the raw body when it is short plain text.
func extractMessage(body []byte) (string, []core.FieldError) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", nil
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return rawMessage(body), nil
	}

	detail := bytes.TrimSpace(eb.Detail)
	if len(detail) > 0 {
		switch detail[0] {
		case '[':
			return detailList(detail)
		case '"':
			var s string
			if err := json.Unmarshal(detail, &s); err == nil && s != "" {
				return s, nil
			}
		}
	}
	if eb.Message != "" {
		return eb.Message, nil
	}
	return eb.Error, nil
}

func detailList(detail []byte) (string, []core.FieldError) {
	var items []json.RawMessage
	if err := json.Unmarshal(detail, &items); err != nil {
		return "", nil
	}
	msgs := make([]string, 0, len(items))
	var flds []core.FieldError
	for _, raw := range items {
		var item detailItem
		if err := json.Unmarshal(raw, &item); err != nil || item.Msg == "" {
			msgs = append(msgs, string(bytes.TrimSpace(raw)))
			continue
		}
		msgs = append(msgs, item.Msg)
		if len(item.Loc) > 0 {
			flds = append(flds, core.FieldError{Field: fmt.Sprint(item.Loc[len(item.Loc)-1]), Error: item.Msg})
		}
	}
	return strings.Join(msgs, ", "), flds
}

// rawMessage keeps short plain-text bodies; HTML error pages are dropped.
func rawMessage(body []byte) string {
	if body[0] == '<' || !utf8.Valid(body) {
		return ""
	}
	s := string(body)
	if len(s) > maxRawMessage {
		return ""
	}
	return s
}
