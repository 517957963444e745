package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rental_messaging_service/internal/messaging/domain"
	"rental_messaging_service/pkg/database"
	errprocess "rental_messaging_service/pkg/err"
)

// UserDirectory is the external user-service collaborator: recipient
// existence checks and display data for REST responses.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Profile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

const profileCacheTTL = 5 * time.Minute

type httpUserDirectory struct {
	baseURL string
	client  *http.Client
	cache   database.RedisRepository[domain.UserProfile]
}

// NewHTTPUserDirectory create a UserDirectory against the user service's
// REST API. cache may be nil to disable profile caching.
func NewHTTPUserDirectory(baseURL string, cache database.RedisRepository[domain.UserProfile]) UserDirectory {
	return &httpUserDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		cache:   cache,
	}
}

func (d *httpUserDirectory) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is empty", errprocess.ErrInvalidArgument)
	}

	if d.cache != nil {
		if cached, err := d.cache.Get(ctx, "user:profile:"+userID); err == nil {
			return &cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errprocess.ErrUserNotFound
	default:
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable,
			fmt.Errorf("user service returned %d", resp.StatusCode))
	}

	var profile domain.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errprocess.Wrap(errprocess.ErrStorageUnavailable, err)
	}

	if d.cache != nil {
		// best effort, a cold cache only costs another lookup
		_ = d.cache.Set(ctx, "user:profile:"+userID, profile, profileCacheTTL)
	}

	return &profile, nil
}

func (d *httpUserDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := d.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, errprocess.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
