package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"
)

const (
	gcalBaseURL      = "https://www.googleapis.com/calendar/v3/calendars/primary/events"
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	googleConsentURL = "https://accounts.google.com/o/oauth2/v2/auth"
	gcalScope        = "https://www.googleapis.com/auth/calendar.events"

	// refresh this far before the recorded expiry
	tokenSlack = 2 * time.Minute
)

type GoogleCalendarService struct {
	clientID     string
	clientSecret string
	redirectURL  string
	users        UserStore
	client       *http.Client
}

// NewGoogleCalendarService initializes the client with OAuth credentials
// from the environment. The user store is needed to persist refreshed
// access tokens.
func NewGoogleCalendarService(users UserStore) *GoogleCalendarService {
	return &GoogleCalendarService{
		clientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		clientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		redirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		users:        users,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL builds the consent page URL for the connect flow. State is the
// caller's signed correlation token.
func (s *GoogleCalendarService) AuthURL(state string) string {
	q := url.Values{
		"client_id":     {s.clientID},
		"redirect_uri":  {s.redirectURL},
		"response_type": {"code"},
		"scope":         {gcalScope},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
		"state":         {state},
	}
	return googleConsentURL + "?" + q.Encode()
}

type googleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// ExchangeCode trades an authorization code for the credential pair.
func (s *GoogleCalendarService) ExchangeCode(ctx context.Context, code string) (access, refresh string, expiry time.Time, err error) {
	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {s.redirectURL},
	}
	tok, err := s.postTokenForm(ctx, form)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return tok.AccessToken, tok.RefreshToken, time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second), nil
}

// accessToken returns a usable bearer token, refreshing when the recorded
// one is stale. A rejected refresh token surfaces as ErrCalendarAuthExpired.
func (s *GoogleCalendarService) accessToken(ctx context.Context, user *models.User) (string, error) {
	if user.GoogleRefreshToken == "" {
		return "", ErrCalendarAuthExpired
	}
	if user.GoogleAccessToken != "" && time.Now().Before(user.GoogleTokenExpiry.Add(-tokenSlack)) {
		return user.GoogleAccessToken, nil
	}

	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"refresh_token": {user.GoogleRefreshToken},
		"grant_type":    {"refresh_token"},
	}
	tok, err := s.postTokenForm(ctx, form)
	if err != nil {
		return "", err
	}

	expiry := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := s.users.SaveGoogleTokens(user.ID, tok.AccessToken, user.GoogleRefreshToken, expiry); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	user.GoogleAccessToken = tok.AccessToken
	user.GoogleTokenExpiry = expiry
	return tok.AccessToken, nil
}

func (s *GoogleCalendarService) postTokenForm(ctx context.Context, form url.Values) (*googleTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Google token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// invalid_grant means the refresh token was revoked or expired
		if strings.Contains(string(body), "invalid_grant") {
			return nil, ErrCalendarAuthExpired
		}
		return nil, fmt.Errorf("google token endpoint error %d: %s", resp.StatusCode, string(body))
	}

	var tok googleTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token JSON: %w", err)
	}
	return &tok, nil
}

type gcalTime struct {
	DateTime time.Time `json:"dateTime,omitempty"`
	TimeZone string    `json:"timeZone,omitempty"`
}

type gcalEvent struct {
	ID          string   `json:"id,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Start       gcalTime `json:"start"`
	End         gcalTime `json:"end"`
}

type gcalEventsResponse struct {
	Items []gcalEvent `json:"items"`
}

// ListEvents returns the user's busy intervals in [from, to). All-day
// entries carry no dateTime and are not timed busy intervals, so they are
// skipped.
func (s *GoogleCalendarService) ListEvents(ctx context.Context, user *models.User, from, to time.Time) ([]TimeSlot, error) {
	token, err := s.accessToken(ctx, user)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"timeMin":      {from.Format(time.RFC3339)},
		"timeMax":      {to.Format(time.RFC3339)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {"250"},
	}
	body, err := s.doJSON(ctx, http.MethodGet, gcalBaseURL+"?"+q.Encode(), token, nil)
	if err != nil {
		return nil, err
	}

	var events gcalEventsResponse
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events JSON: %w", err)
	}

	busy := make([]TimeSlot, 0, len(events.Items))
	for _, ev := range events.Items {
		if ev.Start.DateTime.IsZero() || ev.End.DateTime.IsZero() {
			continue
		}
		busy = append(busy, TimeSlot{Start: ev.Start.DateTime, End: ev.End.DateTime})
	}
	return busy, nil
}

func (s *GoogleCalendarService) CreateEvent(ctx context.Context, user *models.User, ev CalendarEvent) (string, error) {
	token, err := s.accessToken(ctx, user)
	if err != nil {
		return "", err
	}

	payload := gcalEvent{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       gcalTime{DateTime: ev.Start},
		End:         gcalTime{DateTime: ev.End},
	}
	body, err := s.doJSON(ctx, http.MethodPost, gcalBaseURL, token, payload)
	if err != nil {
		return "", err
	}

	var created gcalEvent
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to parse created event JSON: %w", err)
	}
	return created.ID, nil
}

func (s *GoogleCalendarService) UpdateEvent(ctx context.Context, user *models.User, eventID string, ev CalendarEvent) error {
	token, err := s.accessToken(ctx, user)
	if err != nil {
		return err
	}

	payload := gcalEvent{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       gcalTime{DateTime: ev.Start},
		End:         gcalTime{DateTime: ev.End},
	}
	_, err = s.doJSON(ctx, http.MethodPatch, gcalBaseURL+"/"+url.PathEscape(eventID), token, payload)
	return err
}

func (s *GoogleCalendarService) DeleteEvent(ctx context.Context, user *models.User, eventID string) error {
	token, err := s.accessToken(ctx, user)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, gcalBaseURL+"/"+url.PathEscape(eventID), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call calendar API: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound, http.StatusGone:
		// already gone, nothing to unmirror
		return nil
	case http.StatusUnauthorized:
		return ErrCalendarAuthExpired
	default:
		return fmt.Errorf("calendar API error %d on delete", resp.StatusCode)
	}
}

// doJSON performs an authorized calendar API call, mapping 401 to the
// distinguishable expired-auth condition.
func (s *GoogleCalendarService) doJSON(ctx context.Context, method, u, token string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call calendar API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrCalendarAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("calendar API error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
