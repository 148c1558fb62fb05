package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("identity service rate limit reached")

// validName matches the names the identity service can ever hand out.
var validName = regexp.MustCompile(`^[A-Za-z0-9_]{2,16}$`)

// Profile is a canonical premium identity.
type Profile struct {
	ID   uuid.UUID
	Name string
}

// Resolver resolves a username to its premium identity. A nil profile without an error means
// the name has no premium owner.
type Resolver interface {
	FindProfile(ctx context.Context, name string) (*Profile, error)
}

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status from identity service: %d", e.StatusCode)
}

// IsRetryable reports whether the lookup may succeed when tried again later.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// apiProfile is the JSON body of a name lookup.
type apiProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MojangResolver struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

var _ Resolver = (*MojangResolver)(nil)

func NewMojangResolver(baseURL string, timeout time.Duration, logger *zap.Logger) *MojangResolver {
	return &MojangResolver{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func (r *MojangResolver) FindProfile(ctx context.Context, name string) (*Profile, error) {
	if !validName.MatchString(name) {
		r.logger.Debug("skipping lookup of invalid premium name", zap.String("name", name))
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/users/profiles/minecraft/%s", r.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity response for %s: %w", name, err)
	}

	var profile apiProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode identity response for %s: %w", name, err)
	}

	id, err := uuid.Parse(profile.ID)
	if err != nil {
		return nil, fmt.Errorf("identity service returned invalid id %q: %w", profile.ID, err)
	}

	return &Profile{ID: id, Name: profile.Name}, nil
}
