package collab

import (
	"context"
	"fmt"
)

// DefaultRenderRPM — лимит запросов к render-сервису в минуту.
const DefaultRenderRPM = 10

// HTTPRender — render-collaborator за HTTP API: распознавание комнат
// по фотографиям и генерация изображений редизайна.
type HTTPRender struct {
	httpClient
}

// NewHTTPRender создаёт клиент render-сервиса.
func NewHTTPRender(baseURL, apiKey string, rpm int) *HTTPRender {
	if rpm <= 0 {
		rpm = DefaultRenderRPM
	}
	return &HTTPRender{httpClient: newHTTPClient(baseURL, apiKey, rpm)}
}

type analyzeRequest struct {
	ImageURLs []string `json:"image_urls"`
}

type analyzeResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}

// AnalyzeRooms распознаёт типы комнат по фотографиям.
func (r *HTTPRender) AnalyzeRooms(ctx context.Context, imageURLs []string) ([]RoomInfo, error) {
	var resp analyzeResponse
	if err := r.postJSON(ctx, "/v1/rooms/analyze", analyzeRequest{ImageURLs: imageURLs}, &resp); err != nil {
		return nil, fmt.Errorf("analyze rooms: %w", err)
	}
	return resp.Rooms, nil
}

type redesignRequest struct {
	Room     string `json:"room"`
	ImageURL string `json:"image_url"`
	Style    string `json:"style"`
}

// Redesign генерирует редизайн комнаты в заданном стиле.
func (r *HTTPRender) Redesign(ctx context.Context, room RoomInfo, style string) (*RenderResult, error) {
	req := redesignRequest{Room: room.Room, ImageURL: room.ImageURL, Style: style}

	var resp RenderResult
	if err := r.postJSON(ctx, "/v1/rooms/redesign", req, &resp); err != nil {
		return nil, fmt.Errorf("redesign %q: %w", room.Room, err)
	}
	return &resp, nil
}
