package parser

import (
	"encoding/json"
	"fmt"

	"github.com/anchal00/morningstar/internal/model"
)

type CreateRoomRequest struct {
	// ID is optional; the server picks a free code when it is empty.
	ID       string `json:"id,omitempty"`
	HostID   string `json:"host_id"`
	HostName string `json:"host_name"`
}

type JoinRoomRequest struct {
	GuestID   string `json:"guest_id"`
	GuestName string `json:"guest_name"`
}

type SubmitAnswerRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"answer_text"`
}

type AddQuestionRequest struct {
	Text        string `json:"text"`
	SubmittedBy string `json:"submitted_by,omitempty"`
}

type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func parse[T any](data []byte) (*T, error) {
	req := new(T)
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return req, nil
}

func ParseCreateRoomRequest(data []byte) (*CreateRoomRequest, error) {
	return parse[CreateRoomRequest](data)
}

func ParseJoinRoomRequest(data []byte) (*JoinRoomRequest, error) {
	return parse[JoinRoomRequest](data)
}

func ParseSubmitAnswerRequest(data []byte) (*SubmitAnswerRequest, error) {
	return parse[SubmitAnswerRequest](data)
}

func ParseAddQuestionRequest(data []byte) (*AddQuestionRequest, error) {
	return parse[AddQuestionRequest](data)
}
