package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const adminKeyHeader = "X-Admin-API-Key"

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
	Out       io.Writer
}

func (c *client) do(method, path string, payload any) (int, []byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, strings.TrimRight(c.BaseURL, "/")+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(adminKeyHeader, c.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}

// call hace el request y falla si el status no es 2xx.
func (c *client) call(op, method, path string, payload any) ([]byte, error) {
	status, body, err := c.do(method, path, payload)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("%s failed: status=%d body=%s", op, status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *client) print(body []byte) {
	if len(body) == 0 {
		fmt.Fprintln(c.Out, "ok")
		return
	}
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(c.Out, string(p))
			return
		}
	}
	fmt.Fprintln(c.Out, strings.TrimSpace(string(body)))
}

// printClients imprime el listado como tabla en modo text.
func (c *client) printClients(body []byte) error {
	if c.OutFormat == "json" {
		c.print(body)
		return nil
	}
	var list []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return err
	}
	for _, cl := range list {
		fmt.Fprintf(c.Out, "%s\t%s\n", cl.ID, cl.Name)
	}
	return nil
}
