package teleconference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client provisions video rooms with the external conferencing provider.
// Provisioning is never transactional with booking conversion: callers invoke
// it after commit and retry on their side.
type Client struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	attempts int
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
	}
}

type roomRequest struct {
	AppointmentID int64 `json:"appointment_id"`
	PatientID     int64 `json:"patient_id"`
	CaregiverID   int64 `json:"caregiver_id"`
}

type roomResponse struct {
	RoomID       string `json:"room_id"`
	HostJoinURL  string `json:"host_join_url"`
	GuestJoinURL string `json:"guest_join_url"`
}

// ProvisionRoom requests a room with bounded retries.
func (c *Client) ProvisionRoom(ctx context.Context, appointmentID, patientID, caregiverID int64) (string, string, string, error) {
	body, err := json.Marshal(roomRequest{
		AppointmentID: appointmentID,
		PatientID:     patientID,
		CaregiverID:   caregiverID,
	})
	if err != nil {
		return "", "", "", err
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", "", "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		room, err := c.createRoom(ctx, body)
		if err != nil {
			lastErr = err
			continue
		}
		return room.RoomID, room.HostJoinURL, room.GuestJoinURL, nil
	}
	return "", "", "", fmt.Errorf("room provisioning failed after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) createRoom(ctx context.Context, body []byte) (*roomResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rooms", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("room provider responded %d", resp.StatusCode)
	}

	var room roomResponse
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, err
	}
	if room.RoomID == "" {
		return nil, fmt.Errorf("room provider returned empty room id")
	}
	return &room, nil
}
