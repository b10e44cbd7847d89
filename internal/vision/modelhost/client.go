// Package modelhost is an HTTP client for a local inference service hosting
// the vision models (zero-shot object detection, image classification and
// embedding, barcode decoding, OCR). Images travel base64-encoded in JSON
// request bodies.
package modelhost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shelfvision/shelfscan/internal/vision"
)

// Client talks to the inference service. It implements every contract in
// the vision package.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given base URL. An empty URL falls back to
// SHELFSCAN_MODELHOST_URL and then to http://localhost:9090.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SHELFSCAN_MODELHOST_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:9090"
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *Client) post(ctx context.Context, endpoint string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call model host %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model host %s returned status %d: %s", endpoint, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func encodeImage(imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", imagePath, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Detect runs zero-shot object detection over the image with the given
// text prompt and score threshold.
func (c *Client) Detect(ctx context.Context, imagePath, prompt string, threshold float64) ([]vision.Detection, vision.ImageSize, error) {
	image, err := encodeImage(imagePath)
	if err != nil {
		return nil, vision.ImageSize{}, err
	}

	request := map[string]any{
		"image":     image,
		"prompt":    prompt,
		"threshold": threshold,
	}
	var response struct {
		Detections []vision.Detection `json:"detections"`
		ImageSize  vision.ImageSize   `json:"image_size"`
	}
	if err := c.post(ctx, "/api/detect", request, &response); err != nil {
		return nil, vision.ImageSize{}, err
	}

	slog.Info("Detection complete", "image", imagePath, "detections", len(response.Detections))
	return response.Detections, response.ImageSize, nil
}

// Classify asks the fallback classifier whether the crop shows a product
// or a tag.
func (c *Client) Classify(ctx context.Context, imagePath string) (string, vision.Probabilities, error) {
	image, err := encodeImage(imagePath)
	if err != nil {
		return "", vision.Probabilities{}, err
	}

	var response struct {
		Label         string               `json:"label"`
		Probabilities vision.Probabilities `json:"probabilities"`
	}
	if err := c.post(ctx, "/api/classify", map[string]any{"image": image}, &response); err != nil {
		return "", vision.Probabilities{}, err
	}
	return response.Label, response.Probabilities, nil
}

// Match compares embeddings of the reference and candidate images. The
// 0.7 similarity threshold is applied host-side.
func (c *Client) Match(ctx context.Context, refPath, candPath string) (bool, float64, error) {
	refImage, err := encodeImage(refPath)
	if err != nil {
		return false, 0, err
	}
	candImage, err := encodeImage(candPath)
	if err != nil {
		return false, 0, err
	}

	request := map[string]any{
		"reference": refImage,
		"candidate": candImage,
	}
	var response struct {
		Match      bool    `json:"match"`
		Similarity float64 `json:"similarity"`
	}
	if err := c.post(ctx, "/api/match", request, &response); err != nil {
		return false, 0, err
	}
	return response.Match, response.Similarity, nil
}

// Extract decodes EAN-13 barcodes from the tag crop.
func (c *Client) Extract(ctx context.Context, imagePath string) ([]string, error) {
	image, err := encodeImage(imagePath)
	if err != nil {
		return nil, err
	}

	var response struct {
		Barcodes []string `json:"barcodes"`
	}
	if err := c.post(ctx, "/api/barcode", map[string]any{"image": image, "symbology": "EAN13"}, &response); err != nil {
		return nil, err
	}
	return response.Barcodes, nil
}

// ReadText runs OCR over the tag crop and returns recognized fragments.
func (c *Client) ReadText(ctx context.Context, imagePath string) ([]vision.TextFragment, error) {
	image, err := encodeImage(imagePath)
	if err != nil {
		return nil, err
	}

	var response struct {
		Fragments []vision.TextFragment `json:"fragments"`
	}
	if err := c.post(ctx, "/api/ocr", map[string]any{"image": image}, &response); err != nil {
		return nil, err
	}
	return response.Fragments, nil
}

// Crop asks the host to write the boxed region of the image to destDir and
// returns the crop's path on shared storage.
func (c *Client) Crop(ctx context.Context, imagePath string, box [4]float64, destDir, name string) (string, error) {
	image, err := encodeImage(imagePath)
	if err != nil {
		return "", err
	}

	request := map[string]any{
		"image":    image,
		"box":      box,
		"dest_dir": destDir,
		"name":     name,
	}
	var response struct {
		Path string `json:"path"`
	}
	if err := c.post(ctx, "/api/crop", request, &response); err != nil {
		return "", err
	}
	return response.Path, nil
}
