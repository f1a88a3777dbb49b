package upstox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
)

type upstoxError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type upstoxResponse[T any] struct {
	Status string        `json:"status"`
	Data   T             `json:"data"`
	Errors []upstoxError `json:"errors"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("Не удалось подготовить тело запроса: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	urlStr := c.baseURL + path
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, bodyReader)
	if err != nil {
		return fmt.Errorf("Не удалось создать запрос: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ошибка запроса: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("Не удалось прочитать ответ: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("Не удалось разобрать ответ: %w", err)
	}

	if status, msg, ok := extractStatus(out); ok && status == "error" {
		return fmt.Errorf("Ошибка upstox: %s (http=%d)", msg, resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Неуспешный статус: %s", resp.Status)
	}

	return nil
}

func extractStatus(v any) (string, string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return "", "", false
	}
	statusField := rv.FieldByName("Status")
	errorsField := rv.FieldByName("Errors")
	if !statusField.IsValid() || statusField.Kind() != reflect.String {
		return "", "", false
	}
	msg := ""
	if errorsField.IsValid() && errorsField.Kind() == reflect.Slice && errorsField.Len() > 0 {
		first := errorsField.Index(0)
		if m := first.FieldByName("Message"); m.IsValid() && m.Kind() == reflect.String {
			msg = m.String()
		}
	}
	return statusField.String(), msg, true
}
