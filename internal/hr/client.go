// Package hr reads the current staffing snapshot from the HR system's
// XML directory API.
package hr

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Observation is one employee's state as the HR system reports it.
type Observation struct {
	Name     string
	Position string
}

// Client fetches the staffing directory. Responses are XML; role codes are
// resolved against a separate roles catalog endpoint.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

// NewClient validates the base URL and builds a client with the given
// request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("hr: invalid base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    u,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type rolesDocument struct {
	Roles []struct {
		Code string `xml:"code"`
		Name string `xml:"name"`
	} `xml:"role"`
}

type employeesDocument struct {
	Employees []employeeElement `xml:"employee"`
}

type employeeElement struct {
	ID           string   `xml:"id"`
	Name         string   `xml:"name"`
	Deleted      bool     `xml:"deleted"`
	RoleCodes    []string `xml:"roleCodes>string"`
	MainRoleCode string   `xml:"mainRoleCode"`
}

// roleCode returns the employee's primary role code: the first roleCodes
// entry when present, otherwise mainRoleCode.
func (e employeeElement) roleCode() string {
	for _, code := range e.RoleCodes {
		if code != "" {
			return code
		}
	}
	return e.MainRoleCode
}

// FetchEmployees returns the current directory keyed by employee id.
// Deleted employees and employees whose role code is absent from the roles
// catalog are skipped. The roles catalog and the employee list are fetched
// concurrently.
func (c *Client) FetchEmployees(ctx context.Context) (map[string]Observation, error) {
	var (
		rolesDoc rolesDocument
		empDoc   employeesDocument
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getXML(gctx, "/api/employees/roles", nil, &rolesDoc)
	})
	g.Go(func() error {
		return c.getXML(gctx, "/api/employees", url.Values{"includeDeleted": {"false"}}, &empDoc)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roles := make(map[string]string, len(rolesDoc.Roles))
	for _, r := range rolesDoc.Roles {
		if r.Code != "" && r.Name != "" {
			roles[r.Code] = r.Name
		}
	}

	observations := make(map[string]Observation, len(empDoc.Employees))
	skipped := 0
	for _, emp := range empDoc.Employees {
		if emp.ID == "" || emp.Deleted {
			continue
		}
		position, ok := roles[emp.roleCode()]
		if !ok {
			skipped++
			continue
		}
		observations[emp.ID] = Observation{Name: emp.Name, Position: position}
	}

	if skipped > 0 {
		slog.Debug("[HR] Employees without a catalogued role skipped", "count", skipped)
	}
	return observations, nil
}

func (c *Client) getXML(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("hr: build request: %w", err)
	}
	req.Header.Set("Cookie", "key="+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hr: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hr: get %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hr: decode %s: %w", path, err)
	}
	return nil
}
