package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/slatedesk/slate-core/internal/infrastructure/config"
)

// maxResponseSize limits directory response bodies (4MB).
// Device lists for large fleets are the biggest expected payload.
const maxResponseSize = 4 << 20

// Client is an HTTP client for the remote MDM/directory service.
//
// Unprivileged calls (listing and creating directory objects) authenticate
// with the tenant network id and API key. Privileged device calls
// (lock/unlock/restart/assign) additionally carry the bearer session token
// obtained from Authenticate.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - The client holds no mutable state; per-call state lives in the request.
type Client struct {
	baseURL    string
	networkID  string
	apiKey     string
	httpClient *http.Client
}

// New creates a directory client from configuration.
//
// Parameters:
//   - cfg: Directory configuration from config.yaml
//
// Returns:
//   - *Client: Client ready for use (no connection is established up front;
//     the directory is a stateless REST service)
func New(cfg config.DirectoryConfig) *Client {
	timeout := 30
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		networkID: cfg.NetworkID,
		apiKey:    cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// ListLocations retrieves every location for the tenant.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var out struct {
		Locations []Location `json:"locations"`
	}
	if err := c.get(ctx, "/locations", nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// ListClasses retrieves all classes, optionally filtered by location.
// Pass locationID 0 for all locations.
func (c *Client) ListClasses(ctx context.Context, locationID int) ([]SchoolClass, error) {
	var params url.Values
	if locationID > 0 {
		params = url.Values{"locationId": []string{strconv.Itoa(locationID)}}
	}
	var out struct {
		Classes []SchoolClass `json:"classes"`
	}
	if err := c.get(ctx, "/classes", params, &out); err != nil {
		return nil, err
	}
	return out.Classes, nil
}

// CreateClass creates a class in the given location.
//
// The response is not trusted to carry the full class record; callers
// that need the id or uuid should re-query ListClasses afterwards.
func (c *Client) CreateClass(ctx context.Context, name string, locationID int) (SchoolClass, error) {
	body := map[string]any{
		"name":       name,
		"locationId": locationID,
	}
	var out struct {
		Class SchoolClass `json:"class"`
	}
	if err := c.post(ctx, "/classes", body, &out); err != nil {
		return SchoolClass{}, err
	}
	return out.Class, nil
}

// ListUsers retrieves every user for the tenant.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.get(ctx, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// GetUser retrieves a single user's detail, including group memberships.
func (c *Client) GetUser(ctx context.Context, id int) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.get(ctx, "/users/"+strconv.Itoa(id), nil, &out); err != nil {
		return User{}, err
	}
	return out.User, nil
}

// CreateUser creates a directory user and returns its id.
func (c *Client) CreateUser(ctx context.Context, user User) (int, error) {
	var out struct {
		ID int `json:"id"`
	}
	if err := c.post(ctx, "/users", user, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateUser replaces the stored user record (including group memberships).
func (c *Client) UpdateUser(ctx context.Context, user User) error {
	return c.put(ctx, "/users/"+strconv.Itoa(user.ID), user, nil)
}

// ListGroups retrieves every user group for the tenant.
func (c *Client) ListGroups(ctx context.Context) ([]UserGroup, error) {
	var out struct {
		Groups []UserGroup `json:"groups"`
	}
	if err := c.get(ctx, "/groups", nil, &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// CreateGroup creates a user group and returns its id.
func (c *Client) CreateGroup(ctx context.Context, group UserGroup) (int, error) {
	var out struct {
		ID int `json:"id"`
	}
	if err := c.post(ctx, "/groups", group, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// Authenticate exchanges teacher credentials for a session token.
//
// The token authorises privileged device calls until the process
// restarts or re-authenticates; the directory does not advertise an
// expiry and no automatic refresh is performed.
func (c *Client) Authenticate(ctx context.Context, company, username, password string) (SessionToken, error) {
	body := map[string]string{
		"company":  company,
		"username": username,
		"password": password,
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/teacher/authenticate", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: empty session token", ErrBadResponse)
	}
	return SessionToken(out.Token), nil
}

// ListDevices retrieves managed devices, optionally filtered by location.
// Pass locationID 0 for all locations.
func (c *Client) ListDevices(ctx context.Context, locationID int) ([]Device, error) {
	var params url.Values
	if locationID > 0 {
		params = url.Values{"locationId": []string{strconv.Itoa(locationID)}}
	}
	var out struct {
		Devices []Device `json:"devices"`
	}
	if err := c.get(ctx, "/devices", params, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// LockDevice restricts the device to a single app or app set.
func (c *Client) LockDevice(ctx context.Context, udid, app string, token SessionToken) error {
	body := map[string]string{"app": app}
	return c.doJSON(ctx, http.MethodPost, "/devices/"+udid+"/restriction", body, nil, token)
}

// UnlockDevice removes the device's app restriction.
func (c *Client) UnlockDevice(ctx context.Context, udid string, token SessionToken) error {
	return c.doJSON(ctx, http.MethodDelete, "/devices/"+udid+"/restriction", nil, nil, token)
}

// RestartDevice reboots the device.
func (c *Client) RestartDevice(ctx context.Context, udid string, token SessionToken) error {
	return c.doJSON(ctx, http.MethodPost, "/devices/"+udid+"/restart", nil, nil, token)
}

// AssignOwner sets the device's owner to the given directory user.
func (c *Client) AssignOwner(ctx context.Context, udid string, ownerID int, token SessionToken) error {
	body := map[string]int{"ownerId": ownerID}
	return c.doJSON(ctx, http.MethodPut, "/devices/"+udid+"/owner", body, nil, token)
}

// get performs an API-key authenticated GET.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	p := path
	if len(params) > 0 {
		p += "?" + params.Encode()
	}
	return c.doJSON(ctx, http.MethodGet, p, nil, out, "")
}

// post performs an API-key authenticated POST with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out, "")
}

// put performs an API-key authenticated PUT with a JSON body.
func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out, "")
}

// doJSON executes one JSON request/response round trip.
//
// When token is non-empty the call is privileged and carries the bearer
// token; otherwise it authenticates with the tenant API key.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, token SessionToken) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+string(token))
	} else {
		req.SetBasicAuth(c.networkID, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s returned %d", ErrUnauthorized, method, path, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s %s returned %d", ErrBadResponse, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrBadResponse, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding body: %w", ErrBadResponse, err)
	}
	return nil
}
