package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/apperr"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

// apiBasePath is the Notes API v1 prefix, relative to the server base URL.
const apiBasePath = "/index.php/apps/notes/api/v1"

// apiVersionsHeader carries the server's advertised API versions.
const apiVersionsHeader = "X-Notes-API-Versions"

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	http *http.Client
}

// Verify *HTTPClient satisfies Client at compile time.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client with the given timeout per request.
// Timeouts are this client's concern; they surface to the sync engine as
// ordinary transport failures.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{http: &http.Client{Timeout: timeout}}
}

// noteJSON is the wire representation of a note. A zero modified value
// marks an unchanged placeholder in a listing.
type noteJSON struct {
	ID       int64  `json:"id,omitempty"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
	Favorite bool   `json:"favorite"`
	ETag     string `json:"etag,omitempty"`
	Modified int64  `json:"modified,omitempty"`
}

func (j noteJSON) toRemoteNote() models.RemoteNote {
	n := models.RemoteNote{
		RemoteID: j.ID,
		Title:    j.Title,
		Category: j.Category,
		Content:  j.Content,
		Favorite: j.Favorite,
		ETag:     j.ETag,
	}
	if j.Modified != 0 {
		n.Modified = time.Unix(j.Modified, 0).UTC()
	}
	return n
}

func toNoteJSON(note models.Note) noteJSON {
	var modified int64
	if !note.Modified.IsZero() {
		modified = note.Modified.Unix()
	}
	return noteJSON{
		Title:    note.Title,
		Category: note.Category,
		Content:  note.Content,
		Favorite: note.Favorite,
		Modified: modified,
	}
}

// List implements Client.List.
func (c *HTTPClient) List(ctx context.Context, session Session, pruneBefore time.Time, etag string) (*ListResponse, error) {
	url := session.BaseURL + apiBasePath + "/notes"
	if !pruneBefore.IsZero() {
		url += "?pruneBefore=" + strconv.FormatInt(pruneBefore.Unix(), 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build list request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	res, err := c.do(req, session)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if err := statusError(res); err != nil {
		return nil, err
	}

	var raw []noteJSON
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("remote: decode listing: %w", err)
	}

	out := &ListResponse{
		ETag:       res.Header.Get("ETag"),
		APIVersion: res.Header.Get(apiVersionsHeader),
	}
	if lm := res.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			out.LastModified = t.UTC()
		}
	}
	out.Notes = make([]models.RemoteNote, 0, len(raw))
	for _, j := range raw {
		out.Notes = append(out.Notes, j.toRemoteNote())
	}
	return out, nil
}

// Create implements Client.Create.
func (c *HTTPClient) Create(ctx context.Context, session Session, note models.Note) (*models.RemoteNote, error) {
	return c.writeNote(ctx, session, http.MethodPost, session.BaseURL+apiBasePath+"/notes", note)
}

// Edit implements Client.Edit.
func (c *HTTPClient) Edit(ctx context.Context, session Session, note models.Note) (*models.RemoteNote, error) {
	url := session.BaseURL + apiBasePath + "/notes/" + strconv.FormatInt(note.RemoteID, 10)
	return c.writeNote(ctx, session, http.MethodPut, url, note)
}

// Delete implements Client.Delete.
func (c *HTTPClient) Delete(ctx context.Context, session Session, remoteID int64) error {
	url := session.BaseURL + apiBasePath + "/notes/" + strconv.FormatInt(remoteID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("remote: build delete request: %w", err)
	}

	res, err := c.do(req, session)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return statusError(res)
}

func (c *HTTPClient) writeNote(ctx context.Context, session Session, method, url string, note models.Note) (*models.RemoteNote, error) {
	body, err := json.Marshal(toNoteJSON(note))
	if err != nil {
		return nil, fmt.Errorf("remote: encode note: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.do(req, session)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if err := statusError(res); err != nil {
		return nil, err
	}

	var j noteJSON
	if err := json.NewDecoder(res.Body).Decode(&j); err != nil {
		return nil, fmt.Errorf("remote: decode note: %w", err)
	}
	n := j.toRemoteNote()
	return &n, nil
}

func (c *HTTPClient) do(req *http.Request, session Session) (*http.Response, error) {
	req.SetBasicAuth(session.Username, session.Token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", req.Method, req.URL.Path, err)
	}
	return res, nil
}

// statusError maps HTTP status codes onto the sync error taxonomy.
// 2xx maps to nil.
func statusError(res *http.Response) error {
	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusNotModified:
		return apperr.ErrNotModified
	case res.StatusCode == http.StatusNotFound:
		return apperr.ErrNotFound
	case res.StatusCode == http.StatusUnauthorized:
		return apperr.ErrAuthMismatch
	default:
		return fmt.Errorf("remote: server returned status %d", res.StatusCode)
	}
}
